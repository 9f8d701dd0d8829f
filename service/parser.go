package service

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/types"
)

// ParserService extracts plain text from uploaded blobs. PDF extraction
// shells out to pdftotext page by page.
type ParserService struct {
	logger *zap.Logger
}

func NewParserService(logger *zap.Logger) *ParserService {
	return &ParserService{logger: logger}
}

// Parse turns a blob into text. A pdf page that yields nothing
// contributes an empty string so positions downstream stay aligned.
func (s *ParserService) Parse(data []byte, docType string) (string, error) {
	var text string
	switch docType {
	case types.DocumentTypePDF:
		extracted, err := s.parsePDF(data)
		if err != nil {
			return "", err
		}
		text = extracted
	case types.DocumentTypeText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("text document is not valid UTF-8: %w", types.ErrCorruptInput)
		}
		text = string(data)
	default:
		return "", fmt.Errorf("document type %q: %w", docType, types.ErrUnsupportedType)
	}

	if strings.TrimSpace(text) == "" {
		return "", types.ErrEmptyDocument
	}
	return text, nil
}

func (s *ParserService) parsePDF(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	tmp.Close()

	totalPages, err := getNumPages(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, types.ErrCorruptInput)
	}

	pages := make([]string, 0, totalPages)
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		text, err := extractTextWithPdftotext(tmp.Name(), pageNum)
		if err != nil {
			// Keep the page slot so chunk positions line up.
			s.logger.Warn("failed to extract page text",
				zap.Int("page", pageNum),
				zap.Error(err))
			text = ""
		}
		pages = append(pages, cleanText(text))
	}

	return strings.Join(pages, "\n\n"), nil
}

// extractTextWithPdftotext extracts one page using the pdftotext utility.
func extractTextWithPdftotext(filepath string, pageNumber int) (string, error) {
	pdftotextCmd := exec.Command("pdftotext", "-f", strconv.Itoa(pageNumber),
		"-l", strconv.Itoa(pageNumber),
		"-enc", "UTF-8", "-nopgbrk",
		filepath, "-")
	var txtOut bytes.Buffer
	pdftotextCmd.Stdout = &txtOut

	if err := pdftotextCmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext failed for page %d: %w", pageNumber, err)
	}
	return strings.TrimSpace(txtOut.String()), nil
}

// getNumPages uses pdfinfo to get the total number of pages in a PDF file.
func getNumPages(pdfPath string) (int, error) {
	cmd := exec.Command("pdfinfo", pdfPath)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("error running pdfinfo: %v", err)
	}

	scanner := bufio.NewScanner(&out)
	re := regexp.MustCompile(`Pages:\s+(\d+)`)
	for scanner.Scan() {
		line := scanner.Text()
		if matches := re.FindStringSubmatch(line); len(matches) == 2 {
			return strconv.Atoi(matches[1])
		}
	}

	return 0, fmt.Errorf("unable to determine page count from pdfinfo")
}

func cleanText(text string) string {
	replacements := map[string]string{
		"\u0000": "",   // Null character
		"\ufffd": "",   // Unicode replacement character
		"\u001b": "",   // Escape character
		"\r":     "",   // Carriage return
		"\f":     "\n", // Form feed to newline
		"  ":     " ",  // Multiple spaces to single space
	}
	cleaned := text
	for old, new := range replacements {
		cleaned = strings.ReplaceAll(cleaned, old, new)
	}

	return strings.TrimSpace(cleaned)
}
