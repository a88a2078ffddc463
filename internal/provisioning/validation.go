package provisioning

import (
	"fmt"
	"os"
	"strings"

	"github.com/imamik/vnfstack/internal/util/prerequisites"
)

// ValidationError represents a pre-flight validation error or warning.
type ValidationError struct {
	Field    string // Configuration field that failed validation
	Message  string // Human-readable error message
	Severity string // "error" or "warning"
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ve.Severity, ve.Field, ve.Message)
}

// IsError returns true if this is an error (not a warning).
func (ve ValidationError) IsError() bool {
	return ve.Severity == "error"
}

func validationError(field, format string, args ...any) ValidationError {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Severity: "error"}
}

func validationWarning(field, format string, args ...any) ValidationError {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Severity: "warning"}
}

// Validator checks one aspect of an environment before anything is created.
type Validator interface {
	Validate(ctx *Context) []ValidationError
}

// ValidationPhase implements the Phase interface for pre-flight validation.
// Config.Validate has already checked the document itself; these checks
// look at the local machine: referenced files and required tools.
type ValidationPhase struct {
	Validators []Validator
}

// NewValidationPhase creates a validation phase with the default validators.
// skipPlaybooks drops the checks that only matter when playbooks run.
func NewValidationPhase(skipPlaybooks bool) *ValidationPhase {
	v := []Validator{&FilesValidator{SkipPlaybooks: skipPlaybooks}, &ReferencesValidator{}}
	if !skipPlaybooks {
		v = append(v, &ToolsValidator{})
	}
	return &ValidationPhase{Validators: v}
}

// Name implements the Phase interface.
func (vp *ValidationPhase) Name() string {
	return "validation"
}

// Provision implements the Phase interface.
func (vp *ValidationPhase) Provision(ctx *Context) error {
	ctx.Observer.Printf("[Validation] Running pre-flight validation...")

	var errs []ValidationError
	for _, v := range vp.Validators {
		for _, ve := range v.Validate(ctx) {
			if !ve.IsError() {
				ctx.Observer.Event(Event{Type: EventValidationWarning, Phase: "validation", Resource: ve.Field, Message: ve.Message})
				continue
			}
			ctx.Observer.Event(Event{Type: EventValidationError, Phase: "validation", Resource: ve.Field, Message: ve.Message})
			errs = append(errs, ve)
		}
	}

	if len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return fmt.Errorf("pre-flight validation failed:\n  %s", strings.Join(msgs, "\n  "))
	}

	ctx.Observer.Printf("[Validation] Validation passed")
	return nil
}

// FilesValidator checks that referenced local files exist.
type FilesValidator struct {
	SkipPlaybooks bool
}

// Validate implements Validator.
func (v *FilesValidator) Validate(ctx *Context) []ValidationError {
	var errs []ValidationError
	cfg := ctx.Config

	for _, kp := range cfg.Keypairs {
		pubOK := fileExists(kp.PublicFilepath)
		privOK := fileExists(kp.PrivateFilepath)
		switch {
		case pubOK && !privOK:
			errs = append(errs, validationWarning("keypairs."+kp.Name,
				"private key %s is missing; instances using this keypair cannot be reached", kp.PrivateFilepath))
		case !pubOK && privOK:
			errs = append(errs, validationError("keypairs."+kp.Name,
				"public key %s is missing but private key %s exists; refusing to overwrite it", kp.PublicFilepath, kp.PrivateFilepath))
		case !pubOK:
			errs = append(errs, validationWarning("keypairs."+kp.Name,
				"key files do not exist and will be generated"))
		}
	}

	for _, inst := range cfg.Instances {
		if inst.UserdataFile != "" && !fileExists(inst.UserdataFile) {
			errs = append(errs, validationError("instances."+inst.Name+".userdata_file",
				"file %s does not exist", inst.UserdataFile))
		}
	}

	if v.SkipPlaybooks {
		return errs
	}

	for i, pb := range cfg.Ansible {
		if !fileExists(pb.PlaybookLocation) {
			errs = append(errs, validationError(fmt.Sprintf("ansible[%d].playbook_location", i),
				"playbook %s does not exist", pb.PlaybookLocation))
		}
	}
	if cfg.NICPlaybook != "" && !fileExists(cfg.NICPlaybook) {
		errs = append(errs, validationError("nic_playbook", "playbook %s does not exist", cfg.NICPlaybook))
	}

	return errs
}

// ReferencesValidator reports resources the environment expects to exist
// already.
type ReferencesValidator struct{}

// Validate implements Validator.
func (v *ReferencesValidator) Validate(ctx *Context) []ValidationError {
	var errs []ValidationError
	cfg := ctx.Config

	for _, inst := range cfg.Instances {
		if _, ok := cfg.Image(inst.ImageName); !ok {
			errs = append(errs, validationWarning("instances."+inst.Name+".image_name",
				"image %q is not managed by this environment and must already exist", inst.ImageName))
		}
		if inst.KeypairName != "" {
			if _, ok := cfg.Keypair(inst.KeypairName); !ok {
				errs = append(errs, validationWarning("instances."+inst.Name+".keypair_name",
					"keypair %q is not managed by this environment; its private key is unknown", inst.KeypairName))
			}
		}
		if len(inst.Ports) > 1 && cfg.NICPlaybook == "" {
			errs = append(errs, validationWarning("instances."+inst.Name+".ports",
				"no nic_playbook configured; secondary interfaces will not be configured"))
		}
		if inst.SudoUser == "" {
			errs = append(errs, validationWarning("instances."+inst.Name+".sudo_user",
				"no login user; reachability cannot be checked"))
		}
	}

	for _, img := range cfg.Images {
		if img.DownloadURL == "" {
			errs = append(errs, validationWarning("images."+img.Name,
				"no download_url; the image must exist remotely or in %s", img.LocalDownloadPath))
		}
	}

	return errs
}

// ToolsValidator checks that the client tools needed for playbooks exist.
type ToolsValidator struct {
	// Check defaults to prerequisites.Check.
	Check func([]prerequisites.Tool) prerequisites.Report
}

// Validate implements Validator.
func (v *ToolsValidator) Validate(ctx *Context) []ValidationError {
	cfg := ctx.Config
	if len(cfg.Ansible) == 0 && cfg.NICPlaybook == "" {
		return nil
	}

	check := v.Check
	if check == nil {
		check = prerequisites.Check
	}
	tools := prerequisites.PlaybookTools()
	if cfg.SSH.Proxy != "" {
		tools = append(tools, prerequisites.ProxyTools()...)
	}

	var errs []ValidationError
	for _, tool := range check(tools).Missing() {
		if tool.Optional {
			errs = append(errs, validationWarning("tools."+tool.Name, "%s not found in PATH: %s", tool.Name, tool.Purpose))
		} else {
			errs = append(errs, validationError("tools."+tool.Name, "%s not found in PATH (%s)", tool.Name, tool.Docs))
		}
	}
	return errs
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
