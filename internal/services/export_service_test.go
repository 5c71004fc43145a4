package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
)

func TestExportService_ExportSession(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	seedTopic(f.repo, 1, "ch1", "fractions", 5, 0.5)
	f.repo.users.users["student-1"] = &models.User{ID: "student-1", FullName: "Ada Lovelace", Role: models.RoleStudent}

	started := f.start(t, "student-1", adaptiveRequest("fractions"))
	f.answer(t, started.Session.ID, "student-1", 1)

	exporter := NewExportService(f.repo, testLogger())

	t.Run("Owner", func(t *testing.T) {
		file, err := exporter.ExportSession(ctx, started.Session.ID, "student-1", models.RoleStudent)
		require.NoError(t, err)
		assert.Equal(t, "session-1.xlsx", file.Filename)
		assert.Equal(t, xlsxContentType, file.ContentType)

		book, err := excelize.OpenReader(bytes.NewReader(file.Data))
		require.NoError(t, err)
		defer book.Close()

		assert.Equal(t, []string{summarySheet, itemsSheet, abilitySheet}, book.GetSheetList())

		name, err := book.GetCellValue(summarySheet, "B2")
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", name)

		status, err := book.GetCellValue(summarySheet, "B8")
		require.NoError(t, err)
		assert.Equal(t, string(models.SessionActive), status)

		items, err := book.GetRows(itemsSheet)
		require.NoError(t, err)
		// header, answered item, pending item
		require.Len(t, items, 3)
		assert.Equal(t, "Question", items[0][1])
		assert.Equal(t, "Question 1", items[1][1])
		assert.Equal(t, "1", items[1][4])

		ability, err := book.GetRows(abilitySheet)
		require.NoError(t, err)
		assert.Len(t, ability, 2)
	})

	t.Run("TeacherMayExport", func(t *testing.T) {
		_, err := exporter.ExportSession(ctx, started.Session.ID, "teacher-1", models.RoleTeacher)
		assert.NoError(t, err)
	})

	t.Run("OtherStudentDenied", func(t *testing.T) {
		_, err := exporter.ExportSession(ctx, started.Session.ID, "student-2", models.RoleStudent)
		assert.ErrorIs(t, err, ErrSessionAccessDenied)
	})

	t.Run("MissingSession", func(t *testing.T) {
		_, err := exporter.ExportSession(ctx, 42, "student-1", models.RoleStudent)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("UnknownUserFallsBackToID", func(t *testing.T) {
		delete(f.repo.users.users, "student-1")
		file, err := exporter.ExportSession(ctx, started.Session.ID, "student-1", models.RoleStudent)
		require.NoError(t, err)

		book, err := excelize.OpenReader(bytes.NewReader(file.Data))
		require.NoError(t, err)
		defer book.Close()

		name, err := book.GetCellValue(summarySheet, "B2")
		require.NoError(t, err)
		assert.Equal(t, "student-1", name)
	})
}
