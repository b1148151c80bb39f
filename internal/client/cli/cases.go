package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/casefile/internal/client/client"
	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/client/services"
	"github.com/dmitrijs2005/casefile/internal/common"
	"github.com/dmitrijs2005/casefile/internal/timex"
)

func shortID(localID string) string {
	if len(localID) > 8 {
		return localID[:8]
	}
	return localID
}

// findBeneficiary resolves ref against the worker's beneficiaries. ref is a
// local id, a unique prefix of one, or "#<server id>".
func (a *App) findBeneficiary(ctx context.Context, ref string) (*models.Beneficiary, error) {
	list, err := a.caseService.List(ctx, a.owner())
	if err != nil {
		return nil, err
	}

	if rest, ok := strings.CutPrefix(ref, "#"); ok {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad server id %q", ref)
		}
		for _, b := range list {
			if b.ID == id {
				return b, nil
			}
		}
		return nil, fmt.Errorf("beneficiary %s: %w", ref, common.ErrNotFound)
	}

	var found *models.Beneficiary
	for _, b := range list {
		if b.LocalID == ref {
			return b, nil
		}
		if strings.HasPrefix(b.LocalID, ref) {
			if found != nil {
				return nil, fmt.Errorf("beneficiary id %q is ambiguous", ref)
			}
			found = b
		}
	}
	if found == nil {
		return nil, fmt.Errorf("beneficiary %s: %w", ref, common.ErrNotFound)
	}
	return found, nil
}

func (a *App) List(ctx context.Context) error {
	list, err := a.caseService.List(ctx, a.owner())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.printf("No beneficiaries\n")
		return nil
	}
	for _, b := range list {
		server := "-"
		if b.HasServerID() {
			server = "#" + strconv.FormatInt(b.ID, 10)
		}
		a.printf("%-8s  %-6s  %-30s  %3d  %s, %s\n", shortID(b.LocalID), server, b.Name, b.Age, b.City, b.County)
	}
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: show <id>")
		return nil
	}
	b, err := a.findBeneficiary(ctx, args[0])
	if err != nil {
		return err
	}

	a.printf("Name:         %s\n", b.Name)
	a.printf("Local id:     %s\n", b.LocalID)
	if b.HasServerID() {
		a.printf("Server id:    %d\n", b.ID)
	} else {
		a.printf("Server id:    not synced yet\n")
	}
	if !b.BirthDate.IsZero() {
		a.printf("Birth date:   %s (age %d)\n", b.BirthDate.Format(dateLayout), b.Age)
	}
	a.printf("Gender:       %s\n", b.Gender)
	a.printf("Civil status: %s\n", b.CivilStatus)
	a.printf("Location:     %s, %s\n", b.City, b.County)

	if len(b.Forms) > 0 {
		a.printf("Forms:\n")
		for _, f := range b.Forms {
			a.printf("  %d %s v%d  %d/%d answered\n", f.FormID, f.Code, f.FormVersion, f.AnsweredQuestions, f.TotalQuestions)
		}
	}
	if len(b.FamilyMembers) > 0 {
		a.printf("Family:       %s\n", strings.Join(b.FamilyMembers, ", "))
	}

	notes, err := a.fillService.Notes(ctx, b.LocalID)
	if err != nil {
		return err
	}
	for _, n := range notes {
		state := "synced"
		if !n.Synced {
			state = "pending"
		}
		a.printf("Note %d (%s, %s): %s\n", n.ID, n.CreatedAt.Format(time.DateTime), state, n.Body)
	}
	return nil
}

func parseGender(s string) (models.Gender, error) {
	switch strings.ToLower(s) {
	case "m", "male":
		return models.GenderMale, nil
	case "f", "female":
		return models.GenderFemale, nil
	}
	return 0, fmt.Errorf("gender must be m or f, got %q", s)
}

// Add creates a beneficiary on the device. It reaches the server on the
// next sync.
func (a *App) Add(ctx context.Context) error {
	draft := &models.Beneficiary{}

	name, err := getSimpleText(a.reader, "Name", a.out)
	if err != nil {
		return err
	}
	draft.Name = name

	if draft.BirthDate, err = GetDate(a.reader, "Birth date", a.out); err != nil {
		return err
	}

	g, err := getSimpleText(a.reader, "Gender (m/f)", a.out)
	if err != nil {
		return err
	}
	if draft.Gender, err = parseGender(g); err != nil {
		return err
	}

	cs, err := GetInt(a.reader, "Civil status (0 not married, 1 married, 2 divorced, 3 widowed)", 0, a.out)
	if err != nil {
		return err
	}
	draft.CivilStatus = models.CivilStatus(cs)

	if err := a.pickLocation(ctx, draft); err != nil {
		return err
	}

	b, err := a.caseService.Create(ctx, a.owner(), draft)
	if err != nil {
		return err
	}
	a.printf("Created %s\n", shortID(b.LocalID))
	return nil
}

func (a *App) pickLocation(ctx context.Context, b *models.Beneficiary) error {
	counties, err := a.referenceService.Counties(ctx)
	if err != nil {
		a.logger.Warn(ctx, "counties unavailable", "error", err)
		return nil
	}
	for _, c := range counties {
		a.printf("  %d %s\n", c.ID, c.Name)
	}
	if b.CountyID, err = GetInt(a.reader, "County", 0, a.out); err != nil {
		return err
	}

	cities, err := a.referenceService.Cities(ctx, b.CountyID)
	if err != nil {
		a.logger.Warn(ctx, "cities unavailable", "county_id", b.CountyID, "error", err)
		return nil
	}
	for _, c := range cities {
		a.printf("  %d %s\n", c.ID, c.Name)
	}
	b.CityID, err = GetInt(a.reader, "City", 0, a.out)
	return err
}

func beneficiaryAndForm(args []string) (string, int64, error) {
	if len(args) < 2 {
		return "", 0, fmt.Errorf("usage: <beneficiary id> <form id>")
	}
	formID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("bad form id %q", args[1])
	}
	return args[0], formID, nil
}

func (a *App) Assign(ctx context.Context, args []string) error {
	ref, formID, err := beneficiaryAndForm(args)
	if err != nil {
		return err
	}
	b, err := a.findBeneficiary(ctx, ref)
	if err != nil {
		return err
	}
	if err := a.caseService.AssignForm(ctx, b.LocalID, formID); err != nil {
		return err
	}
	a.printf("Form %d assigned to %s\n", formID, b.Name)
	return nil
}

func (a *App) Unassign(ctx context.Context, args []string) error {
	ref, formID, err := beneficiaryAndForm(args)
	if err != nil {
		return err
	}
	b, err := a.findBeneficiary(ctx, ref)
	if err != nil {
		return err
	}
	if err := a.caseService.UnassignForm(ctx, b.LocalID, formID); err != nil {
		return err
	}
	a.printf("Form %d removed from %s\n", formID, b.Name)
	return nil
}

func (a *App) Send(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: send <id>")
		return nil
	}
	b, err := a.findBeneficiary(ctx, args[0])
	if err != nil {
		return err
	}
	ok, err := a.caseService.SendForm(ctx, b.LocalID)
	if err != nil {
		return err
	}
	if ok {
		a.printf("The file of %s was sent to your email\n", b.Name)
	} else {
		a.printf("The server did not send the file\n")
	}
	return nil
}

func yes(s string) bool {
	switch strings.ToLower(s) {
	case "y", "yes", "da":
		return true
	}
	return false
}

// clockToday turns "HH:MM" into today's date at that time.
func clockToday(s string, now time.Time) (time.Time, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("time must be HH:MM, got %q", s)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}

// Station reports the polling station the observer is at. It needs the
// server; there is no offline queue for it.
func (a *App) Station(ctx context.Context) error {
	req := &client.PollingStationRequest{}

	id, err := GetInt(a.reader, "Polling station number", 0, a.out)
	if err != nil {
		return err
	}
	req.ID = id

	code, err := getSimpleText(a.reader, "County code", a.out)
	if err != nil {
		return err
	}
	county, err := a.referenceService.CountyByCode(ctx, code)
	switch {
	case errors.Is(err, services.ErrUnknownCounty):
		return err
	case err != nil:
		a.logger.Warn(ctx, "counties unavailable, county code not checked", "error", err)
		req.CountyCode = code
	default:
		req.CountyCode = county.Code
	}

	now := time.Now()
	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"Arrival time (HH:MM)", &req.ArrivalTime},
		{"Leave time (HH:MM, empty if still there)", &req.LeaveTime},
	} {
		s, err := getSimpleText(a.reader, f.prompt, a.out)
		if err != nil {
			return err
		}
		if s == "" {
			continue
		}
		t, err := clockToday(s, now)
		if err != nil {
			return err
		}
		*f.dst = t.UTC().Format(timex.APILayout)
	}

	urban, err := getSimpleText(a.reader, "Urban area? (y/n)", a.out)
	if err != nil {
		return err
	}
	req.UrbanArea = yes(urban)

	female, err := getSimpleText(a.reader, "Is the president female? (y/n)", a.out)
	if err != nil {
		return err
	}
	req.PresidentIsFemale = yes(female)

	if err := a.apiClient.UploadPollingStation(ctx, req); err != nil {
		return err
	}
	a.printf("Polling station saved\n")
	return nil
}
