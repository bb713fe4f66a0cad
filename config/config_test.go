package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32memsys/bus"
	"github.com/sarchlab/rv32memsys/cacheline"
	"github.com/sarchlab/rv32memsys/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Default", func() {
	It("matches the spec's fixed production geometry and MMIO boundary", func() {
		cfg := config.Default()
		Expect(cfg.MMIOBase).To(Equal(bus.DefaultMMIOBase))
		Expect(cfg.NumSets).To(Equal(cacheline.NumSets))
		Expect(cfg.LineSize).To(Equal(cacheline.LineSize))
	})
})

var _ = Describe("Load and Save", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "rv32memsys-config-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	It("round-trips through JSON", func() {
		path := filepath.Join(tempDir, "system.json")
		cfg := config.Default()
		cfg.MMIOBase = 0x30000000

		Expect(cfg.Save(path)).To(Succeed())

		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.MMIOBase).To(Equal(uint32(0x30000000)))
	})

	It("overlays only the fields present in the file onto the defaults", func() {
		path := filepath.Join(tempDir, "partial.json")
		Expect(os.WriteFile(path, []byte(`{"mmio_base": 4096}`), 0644)).To(Succeed())

		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.MMIOBase).To(Equal(uint32(4096)))
		Expect(loaded.NumSets).To(Equal(cacheline.NumSets))
	})

	It("fails on a missing file", func() {
		_, err := config.Load(filepath.Join(tempDir, "missing.json"))
		Expect(err).To(HaveOccurred())
	})

	It("rejects an invalid geometry", func() {
		path := filepath.Join(tempDir, "invalid.json")
		Expect(os.WriteFile(path, []byte(`{"num_sets": 0}`), 0644)).To(Succeed())

		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Clone", func() {
	It("returns an independent copy", func() {
		cfg := config.Default()
		clone := cfg.Clone()
		clone.MMIOBase = 0x1

		Expect(cfg.MMIOBase).To(Equal(bus.DefaultMMIOBase))
	})
})
