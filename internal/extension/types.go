package extension

// Method identifies an installation method variant.
type Method string

const (
	MethodMise   Method = "mise"
	MethodApt    Method = "apt"
	MethodNpm    Method = "npm"
	MethodBinary Method = "binary"
	MethodScript Method = "script"
	MethodHybrid Method = "hybrid"
)

// Methods lists all valid install methods.
var Methods = []Method{MethodMise, MethodApt, MethodNpm, MethodBinary, MethodScript, MethodHybrid}

// Category classifies an extension.
type Category string

const (
	CategoryLanguages     Category = "languages"
	CategoryDevops        Category = "devops"
	CategoryCloud         Category = "cloud"
	CategoryAiAgents      Category = "ai-agents"
	CategoryAiDev         Category = "ai-dev"
	CategoryMcp           Category = "mcp"
	CategoryProductivity  Category = "productivity"
	CategoryTesting       Category = "testing"
	CategoryDocumentation Category = "documentation"
	CategoryDesktop       Category = "desktop"
	CategoryResearch      Category = "research"
)

// Extension is a parsed extension.yaml document.
type Extension struct {
	Metadata     Metadata      `yaml:"metadata" json:"metadata"`
	Install      InstallSpec   `yaml:"install" json:"install"`
	Validate     *ValidateSpec `yaml:"validate,omitempty" json:"validate,omitempty"`
	BOM          *BOMSpec      `yaml:"bom,omitempty" json:"bom,omitempty"`
	Remove       *RemoveSpec   `yaml:"remove,omitempty" json:"remove,omitempty"`
	Capabilities *Capabilities `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
}

// Name returns the extension's unique name.
func (e *Extension) Name() string { return e.Metadata.Name }

// Metadata holds extension identity and dependency declarations.
type Metadata struct {
	Name         string   `yaml:"name" json:"name"`
	Version      string   `yaml:"version" json:"version"`
	Description  string   `yaml:"description,omitempty" json:"description,omitempty"`
	Category     Category `yaml:"category" json:"category"`
	Homepage     string   `yaml:"homepage,omitempty" json:"homepage,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}

// InstallSpec declares how an extension is installed. Exactly the sub-spec
// matching Method must be set, except for the hybrid method where any
// combination of sub-specs forms the ordered step list.
type InstallSpec struct {
	Method Method      `yaml:"method" json:"method"`
	Mise   *MiseSpec   `yaml:"mise,omitempty" json:"mise,omitempty"`
	Apt    *AptSpec    `yaml:"apt,omitempty" json:"apt,omitempty"`
	Npm    *NpmSpec    `yaml:"npm,omitempty" json:"npm,omitempty"`
	Binary *BinarySpec `yaml:"binary,omitempty" json:"binary,omitempty"`
	Script *ScriptSpec `yaml:"script,omitempty" json:"script,omitempty"`
}

// Steps expands an install spec into single-method steps. For non-hybrid
// methods the result is one step. Hybrid steps run in a fixed order
// (apt, mise, npm, binary, script) so system packages land before
// runtimes and scripts run last for post-processing.
func (s InstallSpec) Steps() []InstallSpec {
	if s.Method != MethodHybrid {
		return []InstallSpec{s}
	}
	var steps []InstallSpec
	if s.Apt != nil {
		steps = append(steps, InstallSpec{Method: MethodApt, Apt: s.Apt})
	}
	if s.Mise != nil {
		steps = append(steps, InstallSpec{Method: MethodMise, Mise: s.Mise})
	}
	if s.Npm != nil {
		steps = append(steps, InstallSpec{Method: MethodNpm, Npm: s.Npm})
	}
	if s.Binary != nil {
		steps = append(steps, InstallSpec{Method: MethodBinary, Binary: s.Binary})
	}
	if s.Script != nil {
		steps = append(steps, InstallSpec{Method: MethodScript, Script: s.Script})
	}
	return steps
}

// MiseSpec installs tools from a mise configuration file.
type MiseSpec struct {
	ConfigFile string `yaml:"configFile,omitempty" json:"configFile,omitempty"`
}

// AptSpec installs system packages, optionally adding repositories first.
type AptSpec struct {
	Packages     []string        `yaml:"packages" json:"packages"`
	Repositories []AptRepository `yaml:"repositories,omitempty" json:"repositories,omitempty"`
	UpdateFirst  *bool           `yaml:"updateFirst,omitempty" json:"updateFirst,omitempty"`
}

// ShouldUpdateFirst reports whether apt package lists are refreshed before install.
func (a *AptSpec) ShouldUpdateFirst() bool {
	return a.UpdateFirst == nil || *a.UpdateFirst
}

// AptRepository declares a custom apt repository with its signing key.
type AptRepository struct {
	Name    string `yaml:"name,omitempty" json:"name,omitempty"`
	GpgKey  string `yaml:"gpgKey" json:"gpgKey"`
	Sources string `yaml:"sources" json:"sources"`
}

// NpmSpec installs global npm packages.
type NpmSpec struct {
	Packages []string `yaml:"packages" json:"packages"`
}

// BinarySpec downloads standalone binaries.
type BinarySpec struct {
	Downloads []BinaryDownload `yaml:"downloads" json:"downloads"`
}

// BinaryDownload is one binary to fetch and place.
type BinaryDownload struct {
	Name        string `yaml:"name" json:"name"`
	URL         string `yaml:"url" json:"url"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
	Destination string `yaml:"destination,omitempty" json:"destination,omitempty"`
	Extract     bool   `yaml:"extract,omitempty" json:"extract,omitempty"`
}

// ScriptSpec runs an installer script bundled with the extension.
type ScriptSpec struct {
	Path    string   `yaml:"path" json:"path"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
	Timeout int      `yaml:"timeout,omitempty" json:"timeout,omitempty"` // seconds
}

// ValidateSpec declares post-install checks.
type ValidateSpec struct {
	Commands []CommandCheck `yaml:"commands,omitempty" json:"commands,omitempty"`
	Mise     *MiseCheck     `yaml:"mise,omitempty" json:"mise,omitempty"`
	Script   *ScriptCheck   `yaml:"script,omitempty" json:"script,omitempty"`
	Timeout  int            `yaml:"timeout,omitempty" json:"timeout,omitempty"` // seconds, per extension
}

// CommandCheck runs a command with a version flag and matches its output.
type CommandCheck struct {
	Name            string `yaml:"name" json:"name"`
	VersionFlag     string `yaml:"versionFlag,omitempty" json:"versionFlag,omitempty"`
	ExpectedPattern string `yaml:"expectedPattern,omitempty" json:"expectedPattern,omitempty"`
}

// MiseCheck verifies tools tracked by mise.
type MiseCheck struct {
	Tools        []string `yaml:"tools,omitempty" json:"tools,omitempty"`
	MinToolCount int      `yaml:"minToolCount,omitempty" json:"minToolCount,omitempty"`
}

// ScriptCheck delegates validation to an exit-code-producing script.
type ScriptCheck struct {
	Path    string `yaml:"path" json:"path"`
	Timeout int    `yaml:"timeout,omitempty" json:"timeout,omitempty"` // seconds
}

// BOMSpec is an explicit bill-of-materials declaration.
type BOMSpec struct {
	Tools []BOMTool `yaml:"tools,omitempty" json:"tools,omitempty"`
	Files []BOMFile `yaml:"files,omitempty" json:"files,omitempty"`
}

// BOMTool describes one piece of installed software.
type BOMTool struct {
	Name        string    `yaml:"name" json:"name"`
	Version     string    `yaml:"version,omitempty" json:"version,omitempty"`
	Source      string    `yaml:"source" json:"source"`
	Type        string    `yaml:"type,omitempty" json:"type,omitempty"`
	License     string    `yaml:"license,omitempty" json:"license,omitempty"`
	Homepage    string    `yaml:"homepage,omitempty" json:"homepage,omitempty"`
	DownloadURL string    `yaml:"downloadUrl,omitempty" json:"downloadUrl,omitempty"`
	PURL        string    `yaml:"purl,omitempty" json:"purl,omitempty"`
	CPE         string    `yaml:"cpe,omitempty" json:"cpe,omitempty"`
	Checksum    *Checksum `yaml:"checksum,omitempty" json:"checksum,omitempty"`
}

// BOMFile describes a file created by the extension.
type BOMFile struct {
	Path string `yaml:"path" json:"path"`
	Type string `yaml:"type,omitempty" json:"type,omitempty"`
}

// Checksum is a content digest with its algorithm.
type Checksum struct {
	Algorithm string `yaml:"algorithm" json:"algorithm"`
	Value     string `yaml:"value" json:"value"`
}

// RemoveSpec declares how an extension is removed.
type RemoveSpec struct {
	Paths        []string `yaml:"paths,omitempty" json:"paths,omitempty"`
	Confirmation *bool    `yaml:"confirmation,omitempty" json:"confirmation,omitempty"`
}

// NeedsConfirmation reports whether removal requires an interactive confirm.
func (r *RemoveSpec) NeedsConfirmation() bool {
	return r == nil || r.Confirmation == nil || *r.Confirmation
}

// Capabilities is the optional capability block. Absence of the whole block,
// or of any sub-capability, is the normal case and never an error.
type Capabilities struct {
	Hooks          *Hooks          `yaml:"hooks,omitempty" json:"hooks,omitempty"`
	Auth           *Auth           `yaml:"auth,omitempty" json:"auth,omitempty"`
	ProjectContext *ProjectContext `yaml:"project-context,omitempty" json:"project-context,omitempty"`
}

// Hooks are optional lifecycle commands around installation.
type Hooks struct {
	PreInstall  *Hook `yaml:"pre-install,omitempty" json:"pre-install,omitempty"`
	PostInstall *Hook `yaml:"post-install,omitempty" json:"post-install,omitempty"`
}

// Hook is a single shell command with an optional description.
type Hook struct {
	Command     string `yaml:"command" json:"command"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Auth declares authentication requirements; devforge only surfaces them.
type Auth struct {
	Provider string   `yaml:"provider" json:"provider"`
	Required bool     `yaml:"required,omitempty" json:"required,omitempty"`
	EnvVars  []string `yaml:"envVars,omitempty" json:"envVars,omitempty"`
}

// ProjectContext declares a file this extension contributes to shared
// project files (for example a CLAUDE.md context file), with a priority
// that orders contributions across extensions.
type ProjectContext struct {
	Enabled   bool       `yaml:"enabled" json:"enabled"`
	Priority  int        `yaml:"priority,omitempty" json:"priority,omitempty"`
	MergeFile *MergeFile `yaml:"mergeFile,omitempty" json:"mergeFile,omitempty"`
}

// DefaultContextPriority orders contributions that do not declare one.
const DefaultContextPriority = 100

// EffectivePriority returns the declared priority or the default.
func (p *ProjectContext) EffectivePriority() int {
	if p == nil || p.Priority == 0 {
		return DefaultContextPriority
	}
	return p.Priority
}

// MergeFile names the contributed source file, its target, and the merge strategy.
type MergeFile struct {
	Source    string `yaml:"source" json:"source"`
	Target    string `yaml:"target" json:"target"`
	Strategy  string `yaml:"strategy" json:"strategy"`
	Separator string `yaml:"separator,omitempty" json:"separator,omitempty"`
}
