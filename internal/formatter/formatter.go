// package formatter renders prices and exports the tracked-product cart to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/shared"
)

// Export formats accepted by [WriteCartExport].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// FormatINR renders v as rupees with Indian digit grouping, e.g. ₹1,23,456 or ₹1,999.50.
func FormatINR(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "₹-"
	}

	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	paise := int64(math.Round(v * 100))
	whole, frac := paise/100, paise%100

	out := "₹" + sign + groupIndian(strconv.FormatInt(whole, 10))
	if frac != 0 {
		out += fmt.Sprintf(".%02d", frac)
	}
	return out
}

// groupIndian inserts commas after the last three digits and then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	return strings.Join(groups, ",") + "," + tail
}

// Status describes where a tracked product is in its lifecycle.
func Status(p models.TrackedProduct) string {
	switch {
	case !p.IsActive:
		return "Completed"
	case p.TargetReached():
		return "Target reached"
	default:
		return "Tracking"
	}
}

// ExportToCSV converts a cart to CSV with one row per tracked product
func ExportToCSV(summary *models.CartSummary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "ASIN", "Product", "Current Price", "Target Price", "Lowest Price", "Status", "Added", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range summary.Products {
		record := []string{
			p.ID,
			p.ASIN,
			p.ProductName,
			strconv.FormatFloat(p.CurrentPrice, 'f', 2, 64),
			strconv.FormatFloat(p.TargetPrice, 'f', 2, 64),
			strconv.FormatFloat(p.LowestPrice, 'f', 2, 64),
			Status(p),
			p.CreatedAt,
			p.AmazonURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a cart to Markdown. images maps product IDs to local image filenames and may be nil.
func ExportToMarkdown(summary *models.CartSummary, images map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Price Tracker Cart\n\n")
	buf.WriteString(fmt.Sprintf("**Total Products**: %d\n", summary.TotalProducts))
	buf.WriteString(fmt.Sprintf("**Active Tracking**: %d\n", summary.ActiveProducts))
	buf.WriteString(fmt.Sprintf("**Completed**: %d\n\n", summary.Completed()))

	if len(summary.Products) == 0 {
		buf.WriteString("Your cart is empty.\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("## Products\n\n")
	for i, p := range summary.Products {
		buf.WriteString(fmt.Sprintf("### %d. %s\n\n", i+1, p.ProductName))
		if img, ok := images[p.ID]; ok && img != "" {
			buf.WriteString(fmt.Sprintf("![%s](%s)\n\n", p.ASIN, img))
		}
		buf.WriteString(fmt.Sprintf("- **Status**: %s\n", Status(p)))
		buf.WriteString(fmt.Sprintf("- **Current Price**: %s\n", FormatINR(p.CurrentPrice)))
		buf.WriteString(fmt.Sprintf("- **Target Price**: %s\n", FormatINR(p.TargetPrice)))
		buf.WriteString(fmt.Sprintf("- **Lowest Price**: %s\n", FormatINR(p.LowestPrice)))
		if p.ASIN != "" {
			buf.WriteString(fmt.Sprintf("- **ASIN**: %s\n", p.ASIN))
		}
		if p.AmazonURL != "" {
			buf.WriteString(fmt.Sprintf("- [View on Amazon](%s)\n", p.AmazonURL))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a cart to plain text
func ExportToText(summary *models.CartSummary) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Total: %d  Active: %d  Completed: %d\n\n",
		summary.TotalProducts, summary.ActiveProducts, summary.Completed()))

	for i, p := range summary.Products {
		buf.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, p.ProductName, Status(p)))
		buf.WriteString(fmt.Sprintf("   current %s  target %s  lowest %s\n",
			FormatINR(p.CurrentPrice), FormatINR(p.TargetPrice), FormatINR(p.LowestPrice)))
		buf.WriteString(fmt.Sprintf("   id %s  %s\n", p.ID, p.AmazonURL))
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ExportOpts configures [WriteCartExport].
type ExportOpts struct {
	Format string
	// Path is the output file, or the output directory for Markdown. Defaults to cart.{ext} or cart/.
	Path string
	// Images downloads product images next to a Markdown export.
	Images     bool
	HTTPClient *http.Client
	// Warn receives non-fatal problems such as failed image downloads.
	Warn func(msg string, keyvals ...any)
}

// ExportResult lists the files written by [WriteCartExport].
type ExportResult struct {
	Format string
	Files  []string
}

// WriteCartExport writes summary to disk in the requested format.
func WriteCartExport(ctx context.Context, summary *models.CartSummary, opts ExportOpts) (*ExportResult, error) {
	if summary == nil {
		return nil, fmt.Errorf("%w: nothing to export", shared.ErrInvalidArgument)
	}
	if opts.Warn == nil {
		opts.Warn = func(string, ...any) {}
	}

	switch opts.Format {
	case FormatCSV, "":
		return writeFile(opts.Path, "cart.csv", FormatCSV, func() ([]byte, error) { return ExportToCSV(summary) })
	case FormatText, "text":
		return writeFile(opts.Path, "cart.txt", FormatText, func() ([]byte, error) { return ExportToText(summary) })
	case FormatMarkdown, "md":
		return writeMarkdown(ctx, summary, opts)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q (use csv, markdown, or txt)", shared.ErrInvalidArgument, opts.Format)
	}
}

func writeFile(path, fallback, format string, render func() ([]byte, error)) (*ExportResult, error) {
	if path == "" {
		path = fallback
	}

	data, err := render()
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return &ExportResult{Format: format, Files: []string{path}}, nil
}

// writeMarkdown creates {dir}/README.md and, when requested, {dir}/{product id}.jpg per product image.
func writeMarkdown(ctx context.Context, summary *models.CartSummary, opts ExportOpts) (*ExportResult, error) {
	dir := opts.Path
	if dir == "" {
		dir = "cart"
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &ExportResult{Format: FormatMarkdown, Files: []string{}}
	images := map[string]string{}

	if opts.Images {
		for _, p := range summary.Products {
			if p.ImageURL == "" || p.ID == "" {
				continue
			}
			data, err := DownloadImage(ctx, opts.HTTPClient, p.ImageURL)
			if err != nil {
				opts.Warn("failed to download product image", "id", p.ID, "error", err)
				continue
			}
			name := sanitizeFilename(p.ID) + ".jpg"
			imagePath := filepath.Join(dir, name)
			if err := os.WriteFile(imagePath, data, 0644); err != nil {
				opts.Warn("failed to save product image", "id", p.ID, "error", err)
				continue
			}
			images[p.ID] = name
			result.Files = append(result.Files, imagePath)
		}
	}

	mdData, err := ExportToMarkdown(summary, images)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(dir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
