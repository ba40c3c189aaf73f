package bom

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"
)

// Format selects a serialization of the aggregate model.
type Format string

const (
	FormatYAML      Format = "yaml"
	FormatJSON      Format = "json"
	FormatCSV       Format = "csv"
	FormatCycloneDX Format = "cyclonedx"
	FormatSPDX      Format = "spdx"
)

// Formats lists every supported output format.
var Formats = []Format{FormatYAML, FormatJSON, FormatCSV, FormatCycloneDX, FormatSPDX}

// Write serializes the report in the requested format.
func Write(w io.Writer, format Format, report *Report) error {
	switch format {
	case FormatYAML:
		return writeYAML(w, report)
	case FormatJSON:
		return writeJSON(w, report)
	case FormatCSV:
		return writeCSV(w, report)
	case FormatCycloneDX:
		return writeCycloneDX(w, report)
	case FormatSPDX:
		return writeSPDX(w, report)
	default:
		return fmt.Errorf("unsupported BOM format %q", format)
	}
}

// WriteExtension serializes a single extension's BOM as YAML.
func WriteExtension(w io.Writer, b *ExtensionBOM) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode %s BOM: %w", b.Extension, err)
	}
	return enc.Close()
}

func writeYAML(w io.Writer, report *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode BOM YAML: %w", err)
	}
	return enc.Close()
}

func writeJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode BOM JSON: %w", err)
	}
	return nil
}

var csvHeader = []string{"Extension", "Software", "Version", "Source", "Type", "License"}

func writeCSV(w io.Writer, report *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write BOM CSV: %w", err)
	}
	for _, e := range report.Entries {
		row := []string{e.Extension, e.Name, e.Version, e.Source, e.Type, e.License}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write BOM CSV: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// cycloneDX 1.4 JSON document shapes.
type cdxDocument struct {
	BOMFormat    string         `json:"bomFormat"`
	SpecVersion  string         `json:"specVersion"`
	SerialNumber string         `json:"serialNumber"`
	Version      int            `json:"version"`
	Metadata     cdxMetadata    `json:"metadata"`
	Components   []cdxComponent `json:"components"`
}

type cdxMetadata struct {
	Timestamp string    `json:"timestamp"`
	Tools     []cdxTool `json:"tools"`
}

type cdxTool struct {
	Vendor string `json:"vendor"`
	Name   string `json:"name"`
}

type cdxComponent struct {
	Type     string       `json:"type"`
	Name     string       `json:"name"`
	Version  string       `json:"version,omitempty"`
	PURL     string       `json:"purl,omitempty"`
	CPE      string       `json:"cpe,omitempty"`
	Licenses []cdxLicense `json:"licenses,omitempty"`
}

type cdxLicense struct {
	License struct {
		ID string `json:"id"`
	} `json:"license"`
}

func writeCycloneDX(w io.Writer, report *Report) error {
	doc := cdxDocument{
		BOMFormat:    "CycloneDX",
		SpecVersion:  "1.4",
		SerialNumber: "urn:uuid:" + uuid.NewString(),
		Version:      1,
		Metadata: cdxMetadata{
			Timestamp: report.GeneratedAt.Format(time.RFC3339),
			Tools:     []cdxTool{{Vendor: "devforge-labs", Name: report.Generator}},
		},
		Components: []cdxComponent{},
	}
	for _, e := range report.Entries {
		c := cdxComponent{
			Type:    "application",
			Name:    e.Name,
			Version: e.Version,
			PURL:    e.PURL,
			CPE:     e.CPE,
		}
		if e.License != "" {
			var lic cdxLicense
			lic.License.ID = e.License
			c.Licenses = []cdxLicense{lic}
		}
		doc.Components = append(doc.Components, c)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode CycloneDX BOM: %w", err)
	}
	return nil
}

func writeSPDX(w io.Writer, report *Report) error {
	namespace := fmt.Sprintf("https://devforge-labs.github.io/spdx/%s", uuid.NewString())

	var err error
	p := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format+"\n", args...)
		}
	}

	p("SPDXVersion: SPDX-2.3")
	p("DataLicense: CC0-1.0")
	p("SPDXID: SPDXRef-DOCUMENT")
	p("DocumentName: %s-bom", report.Generator)
	p("DocumentNamespace: %s", namespace)
	p("Creator: Tool: %s", report.Generator)
	p("Created: %s", report.GeneratedAt.Format(time.RFC3339))

	for i, e := range report.Entries {
		p("")
		p("PackageName: %s", e.Name)
		p("SPDXID: SPDXRef-Package-%d", i+1)
		if e.Version != "" {
			p("PackageVersion: %s", e.Version)
		}
		if e.DownloadURL != "" {
			p("PackageDownloadLocation: %s", e.DownloadURL)
		} else {
			p("PackageDownloadLocation: NOASSERTION")
		}
		p("FilesAnalyzed: false")
		license := e.License
		if license == "" {
			license = "NOASSERTION"
		}
		p("PackageLicenseConcluded: %s", license)
		p("PackageLicenseDeclared: %s", license)
	}
	if err != nil {
		return fmt.Errorf("write SPDX BOM: %w", err)
	}
	return nil
}
