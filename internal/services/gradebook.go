package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

const gradebookSheet = "Calificaciones"

type gradebookStudent struct {
	Email string
	Name  string
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func gradebookFilename(courseName string, now time.Time) string {
	base := strings.Trim(unsafeFilenameChars.ReplaceAllString(courseName, "_"), "_")
	if base == "" {
		base = "curso"
	}
	return fmt.Sprintf("calificaciones_%s_%s.xlsx", base, now.Format("20060102"))
}

// buildGradebook lays out one row per student and one column per assignment.
// Students who submitted without being enrolled as students are appended.
func buildGradebook(courseName string, assignments []*models.Assignment, students []gradebookStudent, rows []repositories.GradebookRow) ([]byte, error) {
	grades := make(map[string]map[string]*float64, len(students))
	seen := make(map[string]bool, len(students))
	enrolled := make([]gradebookStudent, 0, len(students))
	for _, st := range students {
		st.Email = authz.NormalizeEmail(st.Email)
		if seen[st.Email] {
			continue
		}
		seen[st.Email] = true
		enrolled = append(enrolled, st)
	}
	var extra []gradebookStudent
	for _, r := range rows {
		email := authz.NormalizeEmail(r.StudentEmail)
		if grades[email] == nil {
			grades[email] = make(map[string]*float64)
		}
		// rows are ordered oldest first, keep the first graded one
		if grades[email][r.AssignmentID] == nil {
			grades[email][r.AssignmentID] = r.Grade
		}
		if !seen[email] {
			seen[email] = true
			extra = append(extra, gradebookStudent{Email: email})
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Email < extra[j].Email })
	students = append(enrolled, extra...)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", gradebookSheet); err != nil {
		return nil, err
	}

	header := []any{"Email", "Nombre"}
	for _, a := range assignments {
		header = append(header, fmt.Sprintf("%s (/%g)", a.Title, a.MaxGrade))
	}
	header = append(header, "Promedio")
	if err := f.SetSheetRow(gradebookSheet, "A1", &header); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(gradebookSheet, "A1", lastCol+"1", bold); err != nil {
		return nil, err
	}

	for i, st := range students {
		row := []any{st.Email, st.Name}
		sum, count := 0.0, 0
		for _, a := range assignments {
			g := grades[st.Email][a.ID]
			if g == nil {
				row = append(row, "")
				continue
			}
			row = append(row, *g)
			// average on a 0-10 scale so assignments with other maxima weigh the same
			if a.MaxGrade > 0 {
				sum += *g / a.MaxGrade * 10
				count++
			}
		}
		if count > 0 {
			row = append(row, sum/float64(count))
		} else {
			row = append(row, "")
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(gradebookSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{Title: "Calificaciones - " + courseName, Creator: "classroom-service"}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
