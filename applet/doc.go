// Package applet describes the boundary between applets and the platform:
// the host functions an applet may import, the call a host function receives,
// the result codes it returns and the exports an applet provides.
//
// Every host function lives in the "env" module, takes i32 parameters and
// returns one i32. Non-negative results are values; negative results are
// Codes.
package applet
