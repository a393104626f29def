package cfg

import (
	"sort"
)

const (
	SectionGeneral      = "general"
	SectionConfig       = "config"
	SectionRequirements = "requirements"
	SectionRuntime      = "runtime"
	SectionResult       = "result"
	SectionFiles        = "files"
	SectionMetadata     = "metadata"
)

// SectionNames lists the sections of a Record in file order.
var SectionNames = []string{
	SectionGeneral,
	SectionConfig,
	SectionRequirements,
	SectionRuntime,
	SectionResult,
	SectionFiles,
	SectionMetadata,
}

// Record is one benchmark configuration: the sections of a cfg file plus metadata derived
// while it is processed.
type Record struct {
	General      Section
	Config       Section
	Requirements Section
	Runtime      Section
	Result       Section
	Files        Section
	Metadata     Section
}

// Section returns a pointer to the named section, or nil if name is not a known section.
func (r *Record) Section(name string) *Section {
	switch name {
	case SectionGeneral:
		return &r.General
	case SectionConfig:
		return &r.Config
	case SectionRequirements:
		return &r.Requirements
	case SectionRuntime:
		return &r.Runtime
	case SectionResult:
		return &r.Result
	case SectionFiles:
		return &r.Files
	case SectionMetadata:
		return &r.Metadata
	}
	return nil
}

// Snapshot returns a structural clone of r. Mutating the snapshot never affects r, and vice versa.
func (r *Record) Snapshot() *Record {
	return &Record{
		General:      r.General.Clone(),
		Config:       r.Config.Clone(),
		Requirements: r.Requirements.Clone(),
		Runtime:      r.Runtime.Clone(),
		Result:       r.Result.Clone(),
		Files:        r.Files.Clone(),
		Metadata:     r.Metadata.Clone(),
	}
}

// Flatten merges every section into one map, later sections overriding earlier ones, with
// metadata last. Used to feed script templates.
func (r *Record) Flatten() map[string]string {
	out := make(map[string]string)
	for _, name := range SectionNames {
		for k, v := range r.Section(name).Map() {
			out[k] = v
		}
	}
	return out
}

// DefaultRecord holds the site defaults every benchmark record is laid over.
func DefaultRecord() *Record {
	return &Record{
		Config: NewSection(
			"label", "",
			"dataset", "",
			"exe", "",
			"output_file", "",
		),
		Runtime: NewSection(
			"max_running_jobs", "10",
			"gpus", "0",
			"host_str", "",
		),
	}
}

func sortStrings(s []string) {
	sort.Strings(s)
}
