package cacheline_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32memsys/cacheline"
)

func TestCacheline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cacheline Suite")
}

var _ = Describe("Address decomposition", func() {
	// 0x1234_5678: index=0x67, word offset=2, byte offset=0
	const addr = uint32(0x12345678)

	It("extracts the set index", func() {
		Expect(cacheline.Index(addr)).To(Equal(uint32(0x67)))
	})

	It("extracts the word offset", func() {
		Expect(cacheline.WordOffset(addr)).To(Equal(uint32(2)))
	})

	It("extracts the byte offset", func() {
		Expect(cacheline.ByteOffset(addr)).To(Equal(uint32(0)))
	})

	It("computes the line base address", func() {
		Expect(cacheline.LineBase(addr)).To(Equal(uint32(0x12345670)))
	})

	It("keeps every address within a line mapped to the same index and base", func() {
		base := cacheline.LineBase(addr)
		for off := uint32(0); off < cacheline.LineSize; off++ {
			Expect(cacheline.Index(base + off)).To(Equal(cacheline.Index(addr)))
			Expect(cacheline.LineBase(base + off)).To(Equal(base))
		}
	})
})
