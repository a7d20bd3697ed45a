package serial

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/prusalink-community/linkboot/internal/model"
)

// baudRates maps configuration baud rates to their termios speed
// constants. Only rates a Prusa printer could plausibly use are listed;
// an unlisted rate is a configuration error, never a silent fallback.
var baudRates = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// SpeedConstant returns the termios speed constant for a baud rate, or an
// error for unsupported rates.
func SpeedConstant(baud int) (uint32, error) {
	speed, ok := baudRates[baud]
	if !ok {
		return 0, fmt.Errorf("unsupported baud rate %d", baud)
	}
	return speed, nil
}

// Port is an open serial device. It wraps *os.File so the line settings
// and writes share one file descriptor — configuring via a second open
// would race with the write.
type Port struct {
	file     *os.File
	settings model.SerialSettings
}

// Open opens the serial device read-write and applies the line settings.
//
// O_NOCTTY keeps the device from becoming our controlling terminal — a
// stray ^C on the line must not signal the boot process. Settings are
// applied before Open returns, so the first Notify on the returned Port
// is guaranteed to happen on a configured line.
func Open(settings model.SerialSettings) (*Port, error) {
	if err := settings.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitSerialError, "invalid serial settings", err)
	}

	speed, err := SpeedConstant(settings.Baud)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitSerialError, "invalid serial settings", err)
	}

	file, err := os.OpenFile(settings.Device, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitSerialError,
			fmt.Sprintf("failed to open serial device %s", settings.Device), err)
	}

	if err := configureLine(file, speed); err != nil {
		_ = file.Close()
		return nil, model.WrapCLIError(model.ExitSerialError,
			fmt.Sprintf("failed to configure serial device %s", settings.Device), err)
	}

	log.Debug().
		Str("device", settings.Device).
		Int("baud", settings.Baud).
		Msg("serial line configured")

	return &Port{file: file, settings: settings}, nil
}

// configureLine reads the current termios state, applies the line
// settings, and writes it back.
func configureLine(file *os.File, speed uint32) error {
	fd := int(file.Fd())

	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("TCGETS: %w", err)
	}

	ApplyLineSettings(tio, speed)

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err != nil {
		return fmt.Errorf("TCSETS: %w", err)
	}
	return nil
}

// ApplyLineSettings mutates a termios state for the printer link:
// input and output speed set to the given constant, HUPCL cleared so the
// modem lines stay up (and the printer MCU does not reset) when the
// descriptor closes. Everything else — framing, flow control — is left as
// the driver had it, matching `stty 115200 -hupcl`.
func ApplyLineSettings(tio *unix.Termios, speed uint32) {
	tio.Cflag &^= unix.CBAUD
	tio.Cflag |= speed
	tio.Cflag &^= unix.HUPCL
	tio.Ispeed = speed
	tio.Ospeed = speed
}

// Notify writes an M117 display message to the printer. The message is
// sanitized to one printable-ASCII line; an empty result after
// sanitization is rejected rather than sent as a bare "M117".
func (p *Port) Notify(message string) error {
	line, err := DisplayCommand(message)
	if err != nil {
		return model.WrapCLIError(model.ExitSerialError, "invalid display message", err)
	}

	if _, err := p.file.WriteString(line); err != nil {
		return model.WrapCLIError(model.ExitSerialError,
			fmt.Sprintf("failed to write to serial device %s", p.settings.Device), err)
	}

	log.Info().
		Str("device", p.settings.Device).
		Str("message", model.SanitizeDisplayMessage(message)).
		Msg("printer display message sent")
	return nil
}

// DisplayCommand renders the newline-terminated M117 command for a
// message. Exposed for the format checks in tests and for dry-run output.
func DisplayCommand(message string) (string, error) {
	clean := model.SanitizeDisplayMessage(message)
	if clean == "" {
		return "", fmt.Errorf("display message is empty after sanitization")
	}
	return fmt.Sprintf("M117 %s\n", clean), nil
}

// Close releases the device. HUPCL is already cleared, so closing does
// not drop the modem lines.
func (p *Port) Close() error {
	return p.file.Close()
}
