// Package ble is the link layer of the simulated radio: advertising PDU
// framing with CRC24, a beacon scanner that hops the three advertising
// channels, and a receiver front end that holds one frame at a time.
//
// Ticks are microseconds of the board clock.
package ble
