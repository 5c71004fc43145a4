package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	summarySheet = "Summary"
	itemsSheet   = "Items"
	abilitySheet = "Ability"
)

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

// ExportSession renders a session report as an xlsx workbook with a summary,
// one row per item and the ability history.
func (s *exportService) ExportSession(ctx context.Context, sessionID uint, requesterID string, requesterRole models.UserRole) (*ExportFile, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.StudentID != requesterID && !requesterRole.IsElevated() {
		return nil, NewPermissionError(requesterID, sessionID, "session", "export", "not owned by requester")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to prepare workbook: %w", err)
	}
	for _, name := range []string{itemsSheet, abilitySheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummary(f, session, s.studentName(ctx, session.StudentID), headerStyle); err != nil {
		return nil, err
	}
	if err := s.writeItems(ctx, f, session, headerStyle); err != nil {
		return nil, err
	}
	if err := writeAbility(f, session, headerStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Session exported",
		"session_id", sessionID,
		"requester_id", requesterID,
		"bytes", buf.Len())

	return &ExportFile{
		Filename:    fmt.Sprintf("session-%d.xlsx", session.ID),
		ContentType: xlsxContentType,
		Data:        buf.Bytes(),
	}, nil
}

// studentName resolves the display name, falling back to the id when the
// identity provider cannot be reached.
func (s *exportService) studentName(ctx context.Context, studentID string) string {
	user, err := s.repo.User().GetByID(ctx, studentID)
	if err != nil || user.FullName == "" {
		if err != nil {
			s.logger.Warn("Failed to resolve student name", "student_id", studentID, "error", err)
		}
		return studentID
	}
	return user.FullName
}

func writeSummary(f *excelize.File, session *models.AssessmentSession, studentName string, headerStyle int) error {
	finished, reason := "", ""
	if session.FinishedAt != nil {
		finished = session.FinishedAt.Format(time.RFC3339)
	}
	if session.EndReason != nil {
		reason = *session.EndReason
	}
	topic := ""
	if session.TopicID != nil {
		topic = *session.TopicID
	}

	rows := [][]interface{}{
		{"Session", session.ID},
		{"Student", studentName},
		{"Student ID", session.StudentID},
		{"Chapter", session.ChapterID},
		{"Topic", topic},
		{"Type", string(session.SessionType)},
		{"Mode", string(session.Mode)},
		{"Status", string(session.Status)},
		{"End reason", reason},
		{"Started", session.StartedAt.Format(time.RFC3339)},
		{"Finished", finished},
		{"Answered", session.AnsweredQuestions},
		{"Correct", session.CorrectAnswers},
		{"Estimated ability", session.EstimatedAbility},
		{"Confidence", session.Confidence()},
	}
	for i, row := range rows {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}
	return f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(rows)), headerStyle)
}

func (s *exportService) writeItems(ctx context.Context, f *excelize.File, session *models.AssessmentSession, headerStyle int) error {
	header := []interface{}{"#", "Question", "Topic", "Difficulty", "Answer", "Correct", "Response ms", "Presented", "Answered"}
	if err := setRow(f, itemsSheet, 1, header); err != nil {
		return err
	}
	if err := f.SetCellStyle(itemsSheet, "A1", "I1", headerStyle); err != nil {
		return err
	}

	for i, item := range session.Items {
		text := fmt.Sprintf("question %d", item.QuestionID)
		if q, err := s.repo.Question().GetByID(ctx, nil, item.QuestionID); err == nil {
			text = q.Text
		} else if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get question %d: %w", item.QuestionID, err)
		}

		row := []interface{}{item.QuestionNumber, text, item.Topic, item.Difficulty, itemAnswer(item), "", "", item.PresentedAt.Format(time.RFC3339), ""}
		if item.IsCorrect != nil {
			row[5] = *item.IsCorrect
		}
		if item.ResponseTimeMs != nil {
			row[6] = *item.ResponseTimeMs
		}
		if item.AnsweredAt != nil {
			row[8] = item.AnsweredAt.Format(time.RFC3339)
		}
		if err := setRow(f, itemsSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeAbility(f *excelize.File, session *models.AssessmentSession, headerStyle int) error {
	if err := setRow(f, abilitySheet, 1, []interface{}{"Timestamp", "Ability", "Confidence"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(abilitySheet, "A1", "C1", headerStyle); err != nil {
		return err
	}
	for i, snapshot := range session.AbilityHistory {
		row := []interface{}{snapshot.Timestamp.Format(time.RFC3339), snapshot.Ability, snapshot.Confidence}
		if err := setRow(f, abilitySheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func itemAnswer(item models.SessionItem) string {
	switch {
	case item.AnswerText != nil:
		return *item.AnswerText
	case item.AnswerIndex != nil:
		return fmt.Sprint(*item.AnswerIndex)
	default:
		return ""
	}
}
