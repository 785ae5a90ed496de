// Package hwrng exposes the CPU's hardware random number instruction (x86
// RDRAND) as a concurrency-safe generator.
//
// A Generator probes the processor exactly once, when it is created, and
// remembers whether a hardware source exists. Every draw is taken straight
// from the instruction: when the hardware reports that no data was ready the
// draw is retried and the event is counted as a correction. There is no
// software fallback. If the processor has no usable instruction the
// generator reports itself unavailable and every draw yields zero.
//
// One Generator is meant to be created by the program's composition root
// and shared by pointer with everything that needs randomness. All methods
// are safe for concurrent use.
package hwrng
