// Package clock drives a pattern tree in real time. It aligns a repeating
// cycle to the wall clock, evaluates the tree once per cycle, fires each
// event into a sounder at its absolute onset, and supports replacing the
// tree at any instant: future events of the old tree are canceled while
// anything already sounding completes, so a swap is gapless and never
// double-fires.
//
// One Service owns one timeline. Start, Replace, SetRate, Stop and the
// internal timer callbacks all serialize on the service mutex.
package clock
