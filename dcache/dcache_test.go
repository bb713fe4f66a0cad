package dcache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32memsys/bus"
	"github.com/sarchlab/rv32memsys/cpu"
	"github.com/sarchlab/rv32memsys/dcache"
)

// driveOnce runs the cache against a dedicated (unshared) MemorySlave for
// one cycle, handling the DriveBus -> Respond -> Step -> Commit ordering
// spec.md §5 requires.
func driveOnce(c *dcache.Cache, mem *bus.MemorySlave, req cpu.MemRequest) cpu.MemResponse {
	busReq := c.DriveBus()
	slaveResp := mem.Respond(busReq)
	resp := c.Step(req, slaveResp)
	mem.Commit(busReq, slaveResp)
	return resp
}

func run(c *dcache.Cache, mem *bus.MemorySlave, req cpu.MemRequest) (cpu.MemResponse, int) {
	var resp cpu.MemResponse
	cycles := 0
	for {
		cycles++
		resp = driveOnce(c, mem, req)
		if !resp.Stall {
			break
		}
		if cycles > 50 {
			panic("runaway stall")
		}
	}
	return resp, cycles
}

var _ = Describe("Cache", func() {
	var (
		c   *dcache.Cache
		mem *bus.MemorySlave
	)

	BeforeEach(func() {
		c = dcache.New()
		mem = bus.NewMemorySlave()
		mem.Preload(0x200, 0xAAAAAAAA)
		mem.Preload(0x204, 0xBBBBBBBB)
		mem.Preload(0x208, 0xCCCCCCCC)
		mem.Preload(0x20C, 0xDDDDDDDD)
	})

	Describe("cacheable reads", func() {
		It("misses cold, then hits on the same line", func() {
			resp, _ := run(c, mem, cpu.MemRequest{Req: true, Addr: 0x200})
			Expect(resp.Data).To(Equal(uint32(0xAAAAAAAA)))
			Expect(c.Stats().Misses).To(Equal(uint64(1)))

			resp2, cycles2 := run(c, mem, cpu.MemRequest{Req: true, Addr: 0x20C})
			Expect(cycles2).To(Equal(1))
			Expect(resp2.Data).To(Equal(uint32(0xDDDDDDDD)))
			Expect(c.Stats().Hits).To(Equal(uint64(1)))
		})
	})

	Describe("write-through, no-write-allocate writes", func() {
		It("pushes a word store to memory and reports completion only after B", func() {
			resp, cycles := run(c, mem, cpu.MemRequest{
				Req: true, Addr: 0x300, We: true, WData: 0xDEADBEEF, Func3: cpu.Func3Word,
			})
			Expect(resp.Stall).To(BeFalse())
			// IdleCompare (issue) -> WriteBus (AW+W) -> WaitBValid (B) ->
			// IdleCompare (stall released the cycle after B, per spec.md
			// §4.4, mirroring the I-Cache's UpdateTag -> IdleCompare gap).
			Expect(cycles).To(Equal(4))
			Expect(mem.ReadWord(0x300)).To(Equal(uint32(0xDEADBEEF)))
			Expect(c.Stats().Writes).To(Equal(uint64(1)))
		})

		It("does not allocate a line on a write miss", func() {
			run(c, mem, cpu.MemRequest{
				Req: true, Addr: 0x300, We: true, WData: 0x1, Func3: cpu.Func3Word,
			})

			resp, _ := run(c, mem, cpu.MemRequest{Req: true, Addr: 0x300})
			Expect(c.Stats().Misses).To(Equal(uint64(1)))
			Expect(resp.Data).To(Equal(uint32(0x1)))
		})

		It("updates an already-cached line in place on a write hit", func() {
			run(c, mem, cpu.MemRequest{Req: true, Addr: 0x200})
			Expect(c.Stats().Misses).To(Equal(uint64(1)))

			run(c, mem, cpu.MemRequest{
				Req: true, Addr: 0x204, We: true, WData: 0x99999999, Func3: cpu.Func3Word,
			})

			resp, cycles := run(c, mem, cpu.MemRequest{Req: true, Addr: 0x204})
			Expect(cycles).To(Equal(1))
			Expect(resp.Data).To(Equal(uint32(0x99999999)))
			Expect(c.Stats().Hits).To(Equal(uint64(1)))
		})

		DescribeTable("byte and half stores mask only the targeted bytes",
			func(addr uint32, f3 cpu.Func3, wdata uint32, want uint32) {
				base := addr &^ 0x3
				mem.Preload(base, 0xFFFFFFFF)
				run(c, mem, cpu.MemRequest{Req: true, Addr: addr, We: true, WData: wdata, Func3: f3})
				Expect(mem.ReadWord(base)).To(Equal(want))
			},
			Entry("byte @0", uint32(0x400), cpu.Func3Byte, uint32(0x000000AB), uint32(0xFFFFFFAB)),
			Entry("byte @1", uint32(0x401), cpu.Func3Byte, uint32(0x0000AB00), uint32(0xFFFFABFF)),
			Entry("byte @2", uint32(0x402), cpu.Func3Byte, uint32(0x00AB0000), uint32(0xFFABFFFF)),
			Entry("byte @3", uint32(0x403), cpu.Func3Byte, uint32(0xAB000000), uint32(0xABFFFFFF)),
			Entry("half @0", uint32(0x404), cpu.Func3Half, uint32(0x0000ABCD), uint32(0xFFFFABCD)),
			Entry("half @2", uint32(0x406), cpu.Func3Half, uint32(0xABCD0000), uint32(0xABCDFFFF)),
			Entry("word @0", uint32(0x408), cpu.Func3Word, uint32(0x12345678), uint32(0x12345678)),
		)
	})

	Describe("MMIO bypass", func() {
		It("reads a peripheral register without caching it", func() {
			mmio := &bus.SequenceMMIO{Addr: 0x20000004, Values: []uint32{0x1111, 0xCAFEBABE}}
			mem.SetMMIO(bus.DefaultMMIOBase, mmio)

			resp1, _ := run(c, mem, cpu.MemRequest{Req: true, Addr: 0x20000004})
			Expect(resp1.Data).To(Equal(uint32(0x1111)))

			resp2, _ := run(c, mem, cpu.MemRequest{Req: true, Addr: 0x20000004})
			Expect(resp2.Data).To(Equal(uint32(0xCAFEBABE)))

			Expect(c.Stats().MMIOReads).To(Equal(uint64(2)))
			Expect(c.Stats().Hits).To(Equal(uint64(0)))
			Expect(c.Stats().Misses).To(Equal(uint64(0)))
		})

		It("writes a peripheral register without allocating a line", func() {
			mmio := &bus.SequenceMMIO{Addr: 0x20000008}
			mem.SetMMIO(bus.DefaultMMIOBase, mmio)

			run(c, mem, cpu.MemRequest{
				Req: true, Addr: 0x20000008, We: true, WData: 0x42, Func3: cpu.Func3Word,
			})

			Expect(mmio.Writes()).To(Equal(1))
		})
	})
})
