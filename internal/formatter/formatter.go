// package formatter writes a curated song set to local files (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/snesjhon/playlist-gen/internal/models"
	"github.com/snesjhon/playlist-gen/internal/shared"
)

// Format names accepted by [Write].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "md"
	FormatText     = "txt"
)

// Playlist is a named set of songs to write out.
type Playlist struct {
	Name        string
	Description string
	Songs       []models.Song
}

// ExportToCSV converts a Playlist to CSV with columns: ID, Title, Artist, Album, Status, Tags, Reason, Preview
func ExportToCSV(pl *Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Status", "Tags", "Reason", "Preview"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range pl.Songs {
		var id, preview string
		if song.Match != nil {
			id, preview = song.Match.ID, song.Match.PreviewURL
		}
		record := []string{
			id,
			song.Title(),
			song.Artist(),
			song.Album(),
			string(song.Status),
			strings.Join(song.Feedback().Reasons, ";"),
			song.Candidate.Reason,
			preview,
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

// ExportToMarkdown converts a Playlist to Markdown with an optional cover image
func ExportToMarkdown(pl *Playlist, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", pl.Name))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	if pl.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", pl.Description))
	}

	buf.WriteString(fmt.Sprintf("**Songs**: %d\n\n", len(pl.Songs)))

	buf.WriteString("## Songs\n\n")
	for i, song := range pl.Songs {
		albumPart := ""
		if album := song.Album(); album != "" {
			albumPart = fmt.Sprintf(" (%s)", album)
		}
		missing := ""
		if !song.Matched() {
			missing = " _not in catalog_"
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s%s\n", i+1, song.Artist(), song.Title(), albumPart, missing))
		if song.Candidate.Reason != "" {
			buf.WriteString(fmt.Sprintf("   > %s\n", song.Candidate.Reason))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Playlist to plain text format
func ExportToText(pl *Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", pl.Name))
	if pl.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", pl.Description))
	}
	buf.WriteString(fmt.Sprintf("Songs: %d\n\n", len(pl.Songs)))

	for i, song := range pl.Songs {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, song.Artist(), song.Title()))
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidArgument)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
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

// CoverURL returns the artwork of the first matched song, or "".
func CoverURL(pl *Playlist) string {
	for _, song := range pl.Songs {
		if song.Match != nil && song.Match.ArtworkURL != "" {
			return song.Match.ArtworkURL
		}
	}
	return ""
}

// WriteCSVExport writes the playlist to path as CSV.
func WriteCSVExport(pl *Playlist, path string) (string, error) {
	data, err := ExportToCSV(pl)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}
	return path, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes the playlist to a dedicated directory.
//
// When download is set the first song's artwork is saved as the cover. A
// failed download is reported through warn and the export continues.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(pl *Playlist, outputDir string, download bool, warn func(error)) (*MarkdownExportResult, error) {
	if warn == nil {
		warn = func(error) {}
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL := CoverURL(pl); download && imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			warn(err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				warn(err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(pl, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport writes the playlist to path as plain text.
func WriteTextExport(pl *Playlist, path string) (string, error) {
	textData, err := ExportToText(pl)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// Write dispatches on format and returns the files written.
func Write(format string, pl *Playlist, path string, warn func(error)) ([]string, error) {
	if warn == nil {
		warn = func(error) {}
	}

	switch strings.ToLower(format) {
	case FormatCSV:
		f, err := WriteCSVExport(pl, path)
		if err != nil {
			return nil, err
		}
		return []string{f}, nil
	case FormatMarkdown, "markdown":
		res, err := WriteMarkdownExport(pl, path, true, warn)
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	case FormatText, "text":
		f, err := WriteTextExport(pl, path)
		if err != nil {
			return nil, err
		}
		return []string{f}, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want csv, md or txt)", shared.ErrInvalidArgument, format)
	}
}
