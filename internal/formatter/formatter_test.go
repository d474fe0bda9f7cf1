package formatter

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/shared"
	th "github.com/desertthunder/pricepal/internal/testing"
)

func sampleCart() *models.CartSummary {
	return &models.CartSummary{
		TotalProducts:  2,
		ActiveProducts: 1,
		Products: []models.TrackedProduct{
			{
				ID:           "p1",
				ASIN:         "B0KETTLE01",
				ProductName:  "Electric Kettle, 1.5L",
				ImageURL:     "",
				AmazonURL:    "https://www.amazon.in/dp/B0KETTLE01",
				CurrentPrice: 2000,
				TargetPrice:  1500,
				LowestPrice:  1899.5,
				IsActive:     true,
				CreatedAt:    "2025-01-02T10:00:00",
			},
			{
				ID:           "p2",
				ASIN:         "B0MIXER002",
				ProductName:  "Mixer Grinder",
				AmazonURL:    "https://www.amazon.in/dp/B0MIXER002",
				CurrentPrice: 125000,
				TargetPrice:  99999,
				LowestPrice:  98000,
				IsActive:     false,
				CreatedAt:    "2025-01-03T10:00:00",
			},
		},
	}
}

func TestFormatINR(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "₹0"},
		{999, "₹999"},
		{1000, "₹1,000"},
		{1999.5, "₹1,999.50"},
		{123456, "₹1,23,456"},
		{12345678.9, "₹1,23,45,678.90"},
		{-4500, "₹-4,500"},
		{0.005, "₹0.01"},
	}

	for _, tt := range tests {
		if got := FormatINR(tt.in); got != tt.want {
			t.Errorf("FormatINR(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatus(t *testing.T) {
	cart := sampleCart()
	if got := Status(cart.Products[0]); got != "Tracking" {
		t.Errorf("expected Tracking, got %q", got)
	}
	if got := Status(cart.Products[1]); got != "Completed" {
		t.Errorf("expected Completed, got %q", got)
	}

	reached := cart.Products[0]
	reached.LowestPrice = 1400
	if got := Status(reached); got != "Target reached" {
		t.Errorf("expected Target reached, got %q", got)
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleCart())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "ID,ASIN,Product,Current Price,Target Price,Lowest Price,Status,Added,URL") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `"Electric Kettle, 1.5L"`) {
			t.Errorf("CSV should quote names containing commas, got: %s", output)
		}
		if !strings.Contains(output, "2000.00,1500.00,1899.50,Tracking") {
			t.Errorf("CSV missing prices for p1, got: %s", output)
		}

		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 3 {
			t.Errorf("expected 3 lines (header + 2 products), got %d", len(lines))
		}
	})

	t.Run("ExportToCSV with empty cart", func(t *testing.T) {
		data, err := ExportToCSV(&models.CartSummary{})
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 1 {
			t.Errorf("expected header only, got %d lines", len(lines))
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleCart(), map[string]string{"p1": "p1.jpg"})
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Price Tracker Cart",
			"**Total Products**: 2",
			"**Completed**: 1",
			"### 1. Electric Kettle, 1.5L",
			"![B0KETTLE01](p1.jpg)",
			"- **Target Price**: ₹1,500",
			"- **Current Price**: ₹1,25,000",
			"[View on Amazon](https://www.amazon.in/dp/B0MIXER002)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q", want)
			}
		}

		if strings.Count(output, "![") != 1 {
			t.Errorf("only products with a local image should embed one")
		}
	})

	t.Run("ExportToMarkdown with empty cart", func(t *testing.T) {
		data, err := ExportToMarkdown(&models.CartSummary{}, nil)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		if !strings.Contains(string(data), "Your cart is empty.") {
			t.Errorf("expected empty cart message, got: %s", data)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleCart())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Total: 2  Active: 1  Completed: 1") {
			t.Errorf("unexpected summary line: %s", output)
		}
		if !strings.Contains(output, "2. Mixer Grinder [Completed]") {
			t.Errorf("Text missing second product")
		}
		if !strings.Contains(output, "lowest ₹1,899.50") {
			t.Errorf("Text missing lowest price")
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("Empty URL", func(t *testing.T) {
		_, err := DownloadImage(context.Background(), nil, "")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Success", func(t *testing.T) {
		fb := th.NewFakeBackend(t)
		fb.Handle(http.MethodGet, "/img.jpg", http.StatusOK, "jpeg-bytes")

		data, err := DownloadImage(context.Background(), fb.Client(), fb.URL+"/img.jpg")
		if err != nil {
			t.Fatalf("DownloadImage failed: %v", err)
		}
		if !strings.Contains(string(data), "jpeg-bytes") {
			t.Errorf("unexpected body: %q", data)
		}
	})

	t.Run("Non-200 status", func(t *testing.T) {
		fb := th.NewFakeBackend(t)

		_, err := DownloadImage(context.Background(), fb.Client(), fb.URL+"/missing.jpg")
		if err == nil || !strings.Contains(err.Error(), "status 404") {
			t.Errorf("expected status error, got %v", err)
		}
	})

	t.Run("Transport error", func(t *testing.T) {
		client := &http.Client{Transport: th.NewMockRoundTripper(nil, errors.New("connection refused"))}

		_, err := DownloadImage(context.Background(), client, "http://example.invalid/a.jpg")
		if err == nil {
			t.Error("expected error")
		}
	})
}

func TestWriteCartExport(t *testing.T) {
	ctx := context.Background()

	t.Run("CSV", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")

		result, err := WriteCartExport(ctx, sampleCart(), ExportOpts{Format: FormatCSV, Path: path})
		if err != nil {
			t.Fatalf("WriteCartExport failed: %v", err)
		}

		if result.Format != FormatCSV || len(result.Files) != 1 || result.Files[0] != path {
			t.Errorf("unexpected result: %+v", result)
		}
		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "B0MIXER002") {
			t.Errorf("CSV file missing product")
		}
	})

	t.Run("Text", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")

		result, err := WriteCartExport(ctx, sampleCart(), ExportOpts{Format: "text", Path: path})
		if err != nil {
			t.Fatalf("WriteCartExport failed: %v", err)
		}
		if result.Format != FormatText {
			t.Errorf("expected txt format, got %s", result.Format)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("Markdown with images", func(t *testing.T) {
		fb := th.NewFakeBackend(t)
		fb.Handle(http.MethodGet, "/kettle.jpg", http.StatusOK, "jpeg-bytes")

		cart := sampleCart()
		cart.Products[0].ImageURL = fb.URL + "/kettle.jpg"
		cart.Products[1].ImageURL = fb.URL + "/gone.jpg"

		var warnings int
		dir := filepath.Join(t.TempDir(), "cart")
		result, err := WriteCartExport(ctx, cart, ExportOpts{
			Format:     "md",
			Path:       dir,
			Images:     true,
			HTTPClient: fb.Client(),
			Warn:       func(string, ...any) { warnings++ },
		})
		if err != nil {
			t.Fatalf("WriteCartExport failed: %v", err)
		}

		if warnings != 1 {
			t.Errorf("expected one warning for the missing image, got %d", warnings)
		}
		if len(result.Files) != 2 {
			t.Errorf("expected image and README, got %v", result.Files)
		}

		th.AssertFileExists(t, filepath.Join(dir, "p1.jpg"))
		readme := th.MustReadFile(t, filepath.Join(dir, "README.md"))
		if !strings.Contains(readme, "![B0KETTLE01](p1.jpg)") {
			t.Errorf("README should reference the downloaded image")
		}
		if _, err := os.Stat(filepath.Join(dir, "p2.jpg")); !os.IsNotExist(err) {
			t.Errorf("failed download should not leave a file")
		}
	})

	t.Run("Markdown without images", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "plain")

		result, err := WriteCartExport(ctx, sampleCart(), ExportOpts{Format: FormatMarkdown, Path: dir})
		if err != nil {
			t.Fatalf("WriteCartExport failed: %v", err)
		}
		if len(result.Files) != 1 {
			t.Errorf("expected README only, got %v", result.Files)
		}
	})

	t.Run("Unsupported format", func(t *testing.T) {
		_, err := WriteCartExport(ctx, sampleCart(), ExportOpts{Format: "xlsx"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Nil summary", func(t *testing.T) {
		_, err := WriteCartExport(ctx, nil, ExportOpts{})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Unwritable path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "out.csv")

		if _, err := WriteCartExport(ctx, sampleCart(), ExportOpts{Format: FormatCSV, Path: path}); err == nil {
			t.Error("expected write error")
		}
	})
}
