package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/vidgate/vidgate/internal/rank"
)

// Both tables live on the first sheet of their workbook with a header row,
// the layout pandas' to_excel produced for the original deployment.
const sheetName = "Sheet1"

func loadUsers(path string) ([]User, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open users table %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read users table %s: %w", path, err)
	}

	var users []User
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		username := cell(row, 0)
		password := cell(row, 1)
		r, rankErr := rank.Parse(cell(row, 2))
		if username == "" || password == "" || rankErr != nil {
			slog.Warn("skipping malformed user row", "file", path, "row", i+1)
			continue
		}
		users = append(users, User{Username: username, PasswordHash: password, Rank: r})
	}
	return users, nil
}

func saveUsers(path string, users []User) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(sheetName, "A1", &[]interface{}{"username", "password", "rank"}); err != nil {
		return fmt.Errorf("write users header: %w", err)
	}
	for i, u := range users {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{u.Username, u.PasswordHash, u.Rank.String()}
		if err := f.SetSheetRow(sheetName, cellName, &row); err != nil {
			return fmt.Errorf("write user row: %w", err)
		}
	}
	return replaceWorkbook(f, path)
}

func loadVideos(path string) ([]Video, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open videos table %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read videos table %s: %w", path, err)
	}

	var videos []Video
	for i, row := range rows {
		if i == 0 {
			continue
		}
		id := cell(row, 0)
		filename := cell(row, 2)
		r, rankErr := rank.Parse(cell(row, 3))
		if id == "" || filename == "" || rankErr != nil {
			slog.Warn("skipping malformed video row", "file", path, "row", i+1)
			continue
		}
		duration, _ := strconv.Atoi(cell(row, 6))
		videos = append(videos, Video{
			ID:          id,
			Title:       cell(row, 1),
			Filename:    filename,
			Rank:        r,
			Description: cell(row, 4),
			Thumbnail:   cell(row, 5),
			Duration:    duration,
		})
	}
	return videos, nil
}

func saveVideos(path string, videos []Video) error {
	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{"id", "title", "filename", "rank", "description", "thumbnail", "duration"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write videos header: %w", err)
	}
	for i, v := range videos {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{v.ID, v.Title, v.Filename, v.Rank.String(), v.Description, v.Thumbnail, v.Duration}
		if err := f.SetSheetRow(sheetName, cellName, &row); err != nil {
			return fmt.Errorf("write video row: %w", err)
		}
	}
	return replaceWorkbook(f, path)
}

// replaceWorkbook writes f to a temp file in the table's directory, syncs
// it, and renames it over path. The old table stays intact until the
// rename, so a crash mid-write never leaves a half-written table behind.
func replaceWorkbook(f *excelize.File, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp table: %w", err)
	}
	tmpPath := tmp.Name()

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write table: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp table: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace table: %w", err)
	}
	return nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}
