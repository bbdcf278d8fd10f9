package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abduss/filegate/internal/apperr"
	"github.com/abduss/filegate/internal/document"
	"github.com/abduss/filegate/internal/filetype"
	"github.com/abduss/filegate/internal/logger"
	"github.com/abduss/filegate/internal/validation"
)

type inspectOptions struct {
	category string
	name     string
	taxonomy string
}

type inspectReport struct {
	Path         string              `json:"path"`
	Category     string              `json:"category"`
	BucketSuffix string              `json:"bucket_suffix"`
	MIMEType     string              `json:"content_type"`
	Name         string              `json:"name"`
	OriginalName string              `json:"original_name"`
	Size         int64               `json:"size_bytes"`
	Checksum     string              `json:"checksum_sha256"`
	Document     *document.Metadata  `json:"document,omitempty"`
	Intact       *bool               `json:"intact,omitempty"`
	Image        *document.ImageInfo `json:"image,omitempty"`
}

func newInspectCmd() *cobra.Command {
	var opts inspectOptions
	cmd := &cobra.Command{
		Use:   "inspect <path>",
		Short: "Validate a local file as an upload and print what would be stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := inspect(args[0], opts, document.NewPDFExtractor())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "target category; classified from content when empty")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "custom object name")
	cmd.Flags().StringVar(&opts.taxonomy, "taxonomy", os.Getenv("FILEGATE_TAXONOMY_FILE"), "YAML category table")
	return cmd
}

func inspect(path string, opts inspectOptions, extractor document.Extractor) (*inspectReport, error) {
	registry, err := filetype.LoadFile(opts.taxonomy)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	d, err := pickDescriptor(registry, opts.category, data)
	if err != nil {
		return nil, err
	}

	accepted, err := validation.Validate(validation.Submission{
		Filename: filepath.Base(path),
		Name:     opts.name,
		Size:     int64(len(data)),
		Body:     bytes.NewReader(data),
	}, d)
	if err != nil {
		return nil, err
	}

	h := sha256.New()
	if _, err := io.Copy(h, accepted.Body); err != nil {
		return nil, err
	}

	report := &inspectReport{
		Path:         path,
		Category:     string(d.Category),
		BucketSuffix: d.BucketSuffix,
		MIMEType:     accepted.MIMEType,
		Name:         accepted.Name,
		OriginalName: accepted.OriginalName,
		Size:         accepted.Body.BytesRead(),
		Checksum:     hex.EncodeToString(h.Sum(nil)),
	}

	log := zap.NewNop()
	if l, err := logger.Init(); err == nil {
		log = l
	}
	defer func() { _ = log.Sync() }()

	switch {
	case accepted.MIMEType == "application/pdf":
		md, err := extractor.ExtractMetadata(data)
		if err != nil {
			log.Warn("extract document metadata", zap.String("path", path), zap.Error(err))
			break
		}
		intact := extractor.ValidateIntegrity(data)
		report.Document = &md
		report.Intact = &intact
	case strings.HasPrefix(accepted.MIMEType, "image/"):
		info, err := document.ReadImageInfo(bytes.NewReader(data))
		if err != nil {
			log.Warn("read image header", zap.String("path", path), zap.Error(err))
			break
		}
		report.Image = &info
	}
	return report, nil
}

func pickDescriptor(registry *filetype.Registry, category string, data []byte) (filetype.Descriptor, error) {
	if category != "" {
		d, ok := registry.Lookup(category)
		if !ok {
			return filetype.Descriptor{}, apperr.UnknownCategory(category)
		}
		return d, nil
	}
	mimeType := filetype.Sniff(data)
	d, ok := registry.Classify(mimeType)
	if !ok {
		return filetype.Descriptor{}, apperr.MimeTypeRejected(mimeType)
	}
	return d, nil
}
