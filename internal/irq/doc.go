// Package irq models the interrupt side of a board: a critical section, a
// bounded queue meant to be touched only inside it, interrupt lines that can
// be masked until bring-up completes, and the wake-up signal the scheduler
// sleeps on while idle.
//
// Interrupt handlers run on whatever goroutine raised the line, concurrently
// with the scheduler loop, but never concurrently with each other.
package irq
