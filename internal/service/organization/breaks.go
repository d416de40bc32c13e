package organization

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"slotwise/backend/internal/domain"
)

const (
	maxBreakTitle = 120
	maxBreakNote  = 1000
)

type BreakInput struct {
	DayOfWeek int16            `json:"dayOfWeek"`
	BreakType domain.BreakType `json:"breakType"`
	Title     string           `json:"title"`
	Note      string           `json:"note"`
	StartTime domain.Clock     `json:"startTime"`
	EndTime   domain.Clock     `json:"endTime"`
	IsActive  *bool            `json:"isActive"`
}

func (s *Service) ListBreaks(ctx context.Context, access domain.Access, specialistID int64) ([]domain.SpecialistBreak, error) {
	if err := requireOrganization(access); err != nil {
		return nil, err
	}
	if specialistID <= 0 {
		return nil, domain.ValidationError("specialistId", "specialistId must be a positive integer")
	}
	rows, err := s.breaks.ListBreaks(ctx, access.OrganizationID, specialistID)
	if err != nil {
		return nil, storeError(err, "break")
	}
	return rows, nil
}

// ReplaceBreaks swaps the specialist's whole weekly break list.
func (s *Service) ReplaceBreaks(ctx context.Context, access domain.Access, specialistID int64, inputs []BreakInput) ([]domain.SpecialistBreak, error) {
	if err := requireOrganization(access); err != nil {
		return nil, err
	}
	if specialistID <= 0 {
		return nil, domain.ValidationError("specialistId", "specialistId must be a positive integer")
	}
	breaks, err := buildBreaks(inputs)
	if err != nil {
		return nil, err
	}

	saved, err := s.breaks.ReplaceBreaks(ctx, access.OrganizationID, specialistID, breaks)
	if err != nil {
		return nil, storeError(err, "break")
	}

	s.notify(ctx, domain.ChangeEvent{
		Type:           domain.ChangeBreaksReplaced,
		OrganizationID: access.OrganizationID,
		UserID:         access.UserID,
		SpecialistIDs:  []int64{specialistID},
		Created:        len(saved),
	})
	return saved, nil
}

func buildBreaks(inputs []BreakInput) ([]domain.SpecialistBreak, error) {
	out := make([]domain.SpecialistBreak, 0, len(inputs))
	for i, in := range inputs {
		field := fmt.Sprintf("breaks[%d]", i)
		if in.DayOfWeek < 1 || in.DayOfWeek > 7 {
			return nil, domain.ValidationError(field+".dayOfWeek", "dayOfWeek must be between 1 and 7")
		}
		if !in.StartTime.Before(in.EndTime) {
			return nil, domain.ValidationError(field+".endTime", "endTime must be after startTime")
		}
		bt := in.BreakType
		if bt == "" {
			bt = domain.BreakOther
		}
		if !bt.Valid() {
			return nil, domain.ValidationError(field+".breakType", "unknown break type %q", in.BreakType)
		}
		title := strings.TrimSpace(in.Title)
		if len(title) > maxBreakTitle {
			return nil, domain.ValidationError(field+".title", "title must be at most %d characters", maxBreakTitle)
		}
		if len(in.Note) > maxBreakNote {
			return nil, domain.ValidationError(field+".note", "note must be at most %d characters", maxBreakNote)
		}
		active := true
		if in.IsActive != nil {
			active = *in.IsActive
		}
		out = append(out, domain.SpecialistBreak{
			DayOfWeek: in.DayOfWeek,
			BreakType: bt,
			Title:     title,
			Note:      in.Note,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
			IsActive:  active,
		})
	}
	if err := checkBreakSlots(out); err != nil {
		return nil, err
	}
	return out, nil
}

// checkBreakSlots rejects identical slots and overlapping active breaks on the same day.
func checkBreakSlots(breaks []domain.SpecialistBreak) error {
	sorted := make([]domain.SpecialistBreak, len(breaks))
	copy(sorted, breaks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DayOfWeek != sorted[j].DayOfWeek {
			return sorted[i].DayOfWeek < sorted[j].DayOfWeek
		}
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	for i := 0; i < len(sorted); i++ {
		a := sorted[i]
		for j := i + 1; j < len(sorted) && sorted[j].DayOfWeek == a.DayOfWeek; j++ {
			b := sorted[j]
			if a.StartTime == b.StartTime && a.EndTime == b.EndTime {
				return &domain.Error{
					Kind:    domain.KindBreakConflict,
					Field:   "breaks",
					Message: fmt.Sprintf("duplicate break slot %s-%s on day %d", a.StartTime, a.EndTime, a.DayOfWeek),
				}
			}
			if a.IsActive && b.IsActive && domain.Overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
				return &domain.Error{
					Kind:    domain.KindBreakConflict,
					Field:   "breaks",
					Message: fmt.Sprintf("breaks %s-%s and %s-%s overlap on day %d", a.StartTime, a.EndTime, b.StartTime, b.EndTime, a.DayOfWeek),
				}
			}
		}
	}
	return nil
}
