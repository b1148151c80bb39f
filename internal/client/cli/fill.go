package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/client/services"
)

func (a *App) formFill(ctx context.Context, args []string) (models.FormFill, *models.Beneficiary, error) {
	ref, formID, err := beneficiaryAndForm(args)
	if err != nil {
		return models.FormFill{}, nil, err
	}
	b, err := a.findBeneficiary(ctx, ref)
	if err != nil {
		return models.FormFill{}, nil, err
	}

	fill := models.FormFill{BeneficiaryID: b.LocalID, FormID: formID, CompletionDate: time.Now().UTC()}
	for _, f := range b.Forms {
		if f.FormID == formID {
			fill.FormVersion = f.FormVersion
		}
	}
	return fill, b, nil
}

// answersFromLine turns user input into answer rows for q. "-" clears the
// question.
func answersFromLine(q models.Question, line string) ([]models.Answer, error) {
	if line == "-" {
		return nil, nil
	}

	if q.Type.FreeInput() {
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("question %s has no input field", q.Code)
		}
		return []models.Answer{{OptionID: q.Options[0].ID, Selected: true, InputText: line}}, nil
	}

	opts, err := parseOptions(line)
	if err != nil {
		return nil, err
	}
	out := make([]models.Answer, 0, len(opts))
	for _, o := range opts {
		out = append(out, models.Answer{OptionID: o.id, Selected: true, InputText: o.text})
	}
	return out, nil
}

// Answer walks the questions of a form. An empty line keeps the current
// answer, "-" clears it.
func (a *App) Answer(ctx context.Context, args []string) error {
	fill, b, err := a.formFill(ctx, args)
	if err != nil {
		return err
	}

	questions, err := a.fillService.Questions(ctx, fill)
	if err != nil {
		return err
	}
	current, err := a.fillService.Answers(ctx, fill)
	if err != nil {
		return err
	}
	selected := make(map[int64]models.Answer, len(current))
	for _, ans := range current {
		if ans.Selected {
			selected[ans.OptionID] = ans
		}
	}

	a.printf("Form %d for %s, %d questions\n", fill.FormID, b.Name, len(questions))
	saved := 0
	for _, q := range questions {
		a.printf("[%s] %s\n", q.Code, q.Text)
		for _, o := range q.Options {
			mark := " "
			if ans, ok := selected[o.ID]; ok {
				mark = "*"
				if ans.InputText != "" {
					mark = "* " + ans.InputText
				}
			}
			free := ""
			if o.IsFreeText {
				free = " (=text)"
			}
			a.printf("  %d) %s%s %s\n", o.ID, o.Text, free, mark)
		}

		line, err := getSimpleText(a.reader, "Answer", a.out)
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		rows, err := answersFromLine(q, line)
		if err == nil {
			err = a.fillService.SaveAnswer(ctx, fill, q.ID, rows)
		}
		if err != nil {
			a.printf("Not saved: %s\n", err)
			continue
		}
		saved++
	}

	a.printf("%d answers saved\n", saved)
	return nil
}

// Note adds a note to a beneficiary, optionally tied to a question of a
// form and carrying a file.
func (a *App) Note(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: note <id> [form]")
		return nil
	}

	fill := models.FormFill{}
	if len(args) > 1 {
		var err error
		if fill, _, err = a.formFill(ctx, args); err != nil {
			return err
		}
	} else {
		b, err := a.findBeneficiary(ctx, args[0])
		if err != nil {
			return err
		}
		fill.BeneficiaryID = b.LocalID
	}

	draft := services.NoteDraft{}
	if fill.FormID != 0 {
		q, err := getSimpleText(a.reader, "Question id (empty for none)", a.out)
		if err != nil {
			return err
		}
		if q != "" {
			id, err := strconv.ParseInt(q, 10, 64)
			if err != nil {
				return fmt.Errorf("bad question id %q", q)
			}
			draft.QuestionID = &id
		}
	}

	body, err := GetMultiline(a.reader, "Note text", a.out)
	if err != nil {
		return err
	}
	draft.Body = body

	if draft.AttachmentPath, err = getSimpleText(a.reader, "Attachment path (empty for none)", a.out); err != nil {
		return err
	}

	n, err := a.fillService.AddNote(ctx, fill, draft)
	if err != nil {
		return err
	}
	a.printf("Note %d saved\n", n.ID)
	return nil
}
