package main

import (
	"context"
	"runtime"

	"github.com/pterm/pterm"

	"github.com/exploopio/reconkit/pkg/scanners"
)

// ToolInfo contains information about a scanner tool.
type ToolInfo struct {
	Description  string
	InstallMacOS string
	InstallLinux string
	InstallURL   string
}

// toolInfo describes the supported tools, keyed by name.
var toolInfo = map[string]ToolInfo{
	"sqlmap": {
		Description:  "SQL injection detection and exploitation",
		InstallMacOS: "brew install sqlmap",
		InstallLinux: "sudo apt-get install sqlmap  # or pipx install sqlmap",
		InstallURL:   "https://github.com/sqlmapproject/sqlmap#installation",
	},
	"nuclei": {
		Description:  "Template based vulnerability scanner",
		InstallMacOS: "brew install nuclei",
		InstallLinux: "go install -v github.com/projectdiscovery/nuclei/v3/cmd/nuclei@latest",
		InstallURL:   "https://docs.projectdiscovery.io/tools/nuclei/install",
	},
	"subfinder": {
		Description:  "Passive subdomain enumeration",
		InstallMacOS: "brew install subfinder",
		InstallLinux: "go install -v github.com/projectdiscovery/subfinder/v2/cmd/subfinder@latest",
		InstallURL:   "https://docs.projectdiscovery.io/tools/subfinder/install",
	},
	"wapiti": {
		Description:  "Black-box web application scanner",
		InstallMacOS: "pipx install wapiti3",
		InstallLinux: "sudo apt-get install wapiti  # or pipx install wapiti3",
		InstallURL:   "https://wapiti-scanner.github.io/",
	},
}

func listTools(registry *scanners.Registry) error {
	data := pterm.TableData{{"Tool", "Binary", "Target", "Description"}}
	for _, name := range registry.Order() {
		tool, _ := registry.Get(name)
		target := tool.TargetFlag + " <target>"
		if tool.RequiresProtocol {
			target += " (http:// added)"
		}
		data = append(data, []string{name, tool.Command("", nil)[0], target, toolInfo[name].Description})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	pterm.Println()
	pterm.Println("Tools run in the order listed. Example:")
	pterm.Println(`  webscan -t testphp.vulnweb.com --subfinder --nuclei "-es unknown" --wapiti`)
	return nil
}

// checkTools reports the installation status of every tool with install
// hints for the missing ones.
func checkTools(ctx context.Context, registry *scanners.Registry) error {
	pterm.Info.Println("Checking scanner tools installation...")

	var missing []string
	for _, status := range scanners.CheckInstalled(ctx, registry) {
		if status.Installed {
			pterm.Success.Printfln("%-10s %s (installed: %s)", status.Name, status.Binary, status.Version)
			continue
		}
		pterm.Error.Printfln("%-10s %s (NOT INSTALLED)", status.Name, status.Binary)
		missing = append(missing, status.Name)
	}

	if len(missing) == 0 {
		pterm.Success.Println("All tools are installed! Ready to scan.")
		return nil
	}

	pterm.Println()
	pterm.Warning.Printfln("Missing %d tool(s). Installation instructions:", len(missing))
	for _, name := range missing {
		info := toolInfo[name]
		pterm.Printfln("  %s:", name)
		switch runtime.GOOS {
		case "darwin":
			pterm.Printfln("    macOS:   %s", info.InstallMacOS)
		case "linux":
			pterm.Printfln("    Linux:   %s", info.InstallLinux)
		default:
			pterm.Printfln("    macOS:   %s", info.InstallMacOS)
			pterm.Printfln("    Linux:   %s", info.InstallLinux)
		}
		pterm.Printfln("    Docs:    %s", info.InstallURL)
	}
	return nil
}
