package orchestrator

import (
	"io"
	"strings"

	"github.com/pterm/pterm"
)

// Console receives the user-facing progress lines of a scan run.
type Console interface {
	Unsupported(tool string)
	Starting(tool string, command []string, reportPath string)
	Failed(tool, stderr string)
	Saved(tool, reportPath string)
}

// PtermConsole prints progress with pterm prefix printers.
type PtermConsole struct {
	info    *pterm.PrefixPrinter
	success *pterm.PrefixPrinter
	fail    *pterm.PrefixPrinter
}

// NewConsole creates a console writing to w.
func NewConsole(w io.Writer) *PtermConsole {
	return &PtermConsole{
		info:    pterm.Info.WithWriter(w),
		success: pterm.Success.WithWriter(w),
		fail:    pterm.Error.WithWriter(w),
	}
}

func (c *PtermConsole) Unsupported(tool string) {
	c.fail.Printfln("Tool %q is not supported", tool)
}

func (c *PtermConsole) Starting(tool string, command []string, reportPath string) {
	c.info.Printfln("Running %s: %s", tool, strings.Join(command, " "))
	c.info.Printfln("Report will be saved to: %s", reportPath)
}

func (c *PtermConsole) Failed(tool, stderr string) {
	c.fail.Printfln("%s failed:", tool)
	if stderr != "" {
		c.fail.Println(strings.TrimRight(stderr, "\n"))
	}
}

func (c *PtermConsole) Saved(tool, reportPath string) {
	c.success.Printfln("%s report saved to %s", tool, reportPath)
}

// nopConsole discards progress lines.
type nopConsole struct{}

func (nopConsole) Unsupported(string)                {}
func (nopConsole) Starting(string, []string, string) {}
func (nopConsole) Failed(string, string)             {}
func (nopConsole) Saved(string, string)              {}

var _ Console = (*PtermConsole)(nil)
