// Package cli — notify.go implements the "linkboot notify" command.
//
// The notify command configures the serial line and shows a message on
// the printer display. The line settings (baud rate, -hupcl) are applied
// on every invocation, before the write — the command must work as the
// first thing that ever touches the device after power-on.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prusalink-community/linkboot/internal/model"
)

// NewNotifyCommand creates the "notify" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewNotifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify [message]",
		Short: "Show a message on the printer display",
		Long: `Configure the printer's serial line and show a message on its display.

The line is set to the configured baud rate with hang-up-on-close
disabled, then the message is sent as an M117 command. Without an
argument, the configured startup message is used.

Examples:
  linkboot notify
  linkboot notify "Updating firmware"`,

		// At most one positional argument: the message.
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			message := ""
			if len(args) == 1 {
				message = args[0]
			}
			return runNotify(message)
		},
	}

	return cmd
}

// runNotify is the main logic function for the notify command.
func runNotify(message string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if message == "" {
		message = cfg.Serial.Message
	}

	if err := notifyPrinter(cfg.SerialSettings(), message); err != nil {
		return err
	}

	printNotifyResult(cfg.Serial.Device, message)
	return nil
}

// printNotifyResult outputs the notify result in text or JSON format.
func printNotifyResult(device, message string) {
	clean := model.SanitizeDisplayMessage(message)

	if IsJSONOutput() {
		result := map[string]interface{}{
			"action":  "notified",
			"device":  device,
			"message": clean,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Sent %q to printer display (%s)\n", clean, device)
}
