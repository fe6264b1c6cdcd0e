package helpers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestConvertToSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Empty string", "", ""},
		{"Simple string", "Simple Test", "simple_test"},
		{"With colon", "Test: Colon", "test-colon"},
		{"With numbers", "Model V1.5", "model_v1.5"},
		{"Mixed case", "MixedCase Slug", "mixedcase_slug"},
		{"Invalid characters", "File*Name?Is\"Bad!", "filenameisbad"},
		{"Repeated dashes", "double--dash", "double-dash"},
		{"Repeated underscores", "double__underscore", "double_underscore"},
		{"Mixed repeated separators", "mixed-_-separator--test", "mixed-separator-test"},
		{"Leading/trailing spaces (handled by Trim)", "  Leading Trailing  ", "leading_trailing"},
		{"Leading/trailing separators", "-_Leading Trailing_-_", "leading_trailing"},
		{"Already valid", "valid-slug_1.0", "valid-slug_1.0"},
		{"All invalid", "!@#$%^&*()+", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertToSlug(tt.input)
			if got != tt.want {
				t.Errorf("ConvertToSlug(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBytesToSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes uint64
		want  string
	}{
		{"Zero bytes", 0, "0B"},
		{"Bytes", 500, "500.00B"},
		{"Kilobytes", 1024, "1.00KB"},
		{"Kilobytes fractional", 1536, "1.50KB"},
		{"Megabytes", 1024 * 1024, "1.00MB"},
		{"Megabytes fractional", 1024*1024 + 512*1024, "1.50MB"},
		{"Gigabytes", 1024 * 1024 * 1024, "1.00GB"},
		{"Terabytes", 1024 * 1024 * 1024 * 1024, "1.00TB"},
		{"Large Terabytes", 1536 * 1024 * 1024 * 1024, "1.50TB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BytesToSize(tt.bytes)
			if got != tt.want {
				t.Errorf("BytesToSize(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestDigestFileAndReader(t *testing.T) {
	tempDir := t.TempDir()
	testContent := []byte("this is test content for hashing")

	testFilePath := filepath.Join(tempDir, "test_hash_file.txt")
	if err := os.WriteFile(testFilePath, testContent, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	fileDigest, err := DigestFile(testFilePath)
	if err != nil {
		t.Fatalf("DigestFile returned error: %v", err)
	}
	if len(fileDigest) != 64 {
		t.Errorf("DigestFile returned digest of length %d, want 64", len(fileDigest))
	}

	readerDigest, err := DigestReader(bytes.NewReader(testContent))
	if err != nil {
		t.Fatalf("DigestReader returned error: %v", err)
	}
	if readerDigest != fileDigest {
		t.Errorf("DigestReader(%q) = %q, want %q to match DigestFile", testContent, readerDigest, fileDigest)
	}

	if _, err := DigestFile(filepath.Join(tempDir, "missing.txt")); err == nil {
		t.Error("DigestFile on a missing file: want error, got nil")
	}
}

func TestCheckAndMakeDir(t *testing.T) {
	baseTempDir := t.TempDir()

	tests := []struct {
		name       string
		dirToMake  string
		wantResult bool
		wantExists bool
	}{
		{
			name:       "Create simple directory",
			dirToMake:  "new_dir",
			wantResult: true,
			wantExists: true,
		},
		{
			name:       "Create nested directory",
			dirToMake:  filepath.Join("nested", "dir", "to", "create"),
			wantResult: true,
			wantExists: true,
		},
		{
			name:       "Attempt to create directory that is a file",
			dirToMake:  "existing_file.txt",
			wantResult: false,
			wantExists: false,
		},
		{
			name:       "Directory already exists",
			dirToMake:  "already_exists",
			wantResult: true,
			wantExists: true,
		},
	}

	preExistingDir := filepath.Join(baseTempDir, "already_exists")
	if err := os.Mkdir(preExistingDir, 0755); err != nil {
		t.Fatalf("Failed to pre-create directory %s: %v", preExistingDir, err)
	}
	preExistingFile := filepath.Join(baseTempDir, "existing_file.txt")
	if _, err := os.Create(preExistingFile); err != nil {
		t.Fatalf("Failed to pre-create file %s: %v", preExistingFile, err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fullPathToMake := filepath.Join(baseTempDir, tt.dirToMake)
			gotResult := CheckAndMakeDir(fullPathToMake)

			if gotResult != tt.wantResult {
				t.Errorf("CheckAndMakeDir(%q) = %v, want %v", fullPathToMake, gotResult, tt.wantResult)
			}

			statInfo, err := os.Stat(fullPathToMake)
			gotExists := err == nil && statInfo.IsDir()

			if gotExists != tt.wantExists {
				if tt.wantExists {
					t.Errorf("CheckAndMakeDir(%q) succeeded (%v) but directory does not exist", fullPathToMake, gotResult)
				} else {
					t.Errorf("CheckAndMakeDir(%q) failed (%v) but directory unexpectedly exists", fullPathToMake, gotResult)
				}
			}

			if tt.wantExists && gotExists {
				info, _ := os.Stat(fullPathToMake)
				if !info.IsDir() {
					t.Errorf("CheckAndMakeDir(%q) created something, but it's not a directory", fullPathToMake)
				}
			}
		})
	}
}
