// Package serial configures the printer's serial line and writes status
// messages to it.
//
// The printer is attached over a UART (/dev/ttyAMA0 on the stock image).
// Before anything is written, the line is configured via termios: the baud
// rate is set to the printer's speed and HUPCL is cleared. Clearing HUPCL
// matters — with it set, the DTR line drops when the configuring process
// closes the device, which resets the printer's microcontroller and wipes
// the message we just displayed.
//
// The only protocol knowledge in this package is the M117 command: the
// firmware shows the rest of the line on the printer's screen.
package serial
