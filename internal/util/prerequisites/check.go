// Package prerequisites looks up the local binaries vnfstack shells out to.
package prerequisites

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool is a binary expected in PATH.
type Tool struct {
	Name string
	// Optional tools only degrade a feature when missing.
	Optional bool
	Purpose  string
	Docs     string
}

// Tools used by the playbook phase.
var (
	AnsiblePlaybook = Tool{
		Name:    "ansible-playbook",
		Purpose: "runs playbooks against provisioned instances",
		Docs:    "https://docs.ansible.com/ansible/latest/installation_guide/",
	}
	Netcat = Tool{
		Name:     "nc",
		Optional: true,
		Purpose:  "ansible ProxyCommand through the ssh proxy",
		Docs:     "https://nmap.org/ncat/",
	}
)

// PlaybookTools returns the tools needed to run playbooks.
func PlaybookTools() []Tool {
	return []Tool{AnsiblePlaybook}
}

// ProxyTools returns the tools needed when SSH goes through a proxy.
func ProxyTools() []Tool {
	return []Tool{Netcat}
}

// Result is the outcome of looking one tool up. Path is empty when the tool
// was not found.
type Result struct {
	Tool Tool
	Path string
}

// Found reports whether the tool is in PATH.
func (r Result) Found() bool { return r.Path != "" }

// Report holds the results of a Check in tool order.
type Report []Result

// Missing returns the tools that were not found.
func (r Report) Missing() []Tool {
	var out []Tool
	for _, res := range r {
		if !res.Found() {
			out = append(out, res.Tool)
		}
	}
	return out
}

// Err returns an error naming every missing tool that is not optional.
func (r Report) Err() error {
	var missing []string
	for _, t := range r.Missing() {
		if !t.Optional {
			missing = append(missing, fmt.Sprintf("%s (%s)", t.Name, t.Docs))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

var lookPath = exec.LookPath

// Check looks every tool up in PATH.
func Check(tools []Tool) Report {
	report := make(Report, 0, len(tools))
	for _, t := range tools {
		path, err := lookPath(t.Name)
		if err != nil {
			path = ""
		}
		report = append(report, Result{Tool: t, Path: path})
	}
	return report
}
