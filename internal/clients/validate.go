package clients

import (
	"strings"

	"github.com/wolfman30/aba-directory/internal/inputval"
)

func normalizeInput(in Input) (Input, error) {
	out := Input{
		Status:          in.Status,
		ChildFirstName:  inputval.PlainText(in.ChildFirstName),
		ChildLastName:   inputval.PlainText(in.ChildLastName),
		ParentFirstName: inputval.PlainText(in.ParentFirstName),
		ParentLastName:  inputval.PlainText(in.ParentLastName),
		ParentEmail:     strings.ToLower(strings.TrimSpace(in.ParentEmail)),
		ParentPhone:     strings.TrimSpace(in.ParentPhone),
		InsuranceName:   inputval.PlainText(in.InsuranceName),
		Notes:           inputval.PlainText(in.Notes),
	}
	if out.Status == "" {
		out.Status = StatusInquiry
	}
	if _, ok := ParseStatus(string(out.Status)); !ok {
		return Input{}, inputval.Field("status", "Unknown client status")
	}
	names := []struct{ field, value, label string }{
		{"childFirstName", out.ChildFirstName, "Child first name"},
		{"childLastName", out.ChildLastName, "Child last name"},
		{"parentFirstName", out.ParentFirstName, "Parent first name"},
		{"parentLastName", out.ParentLastName, "Parent last name"},
	}
	for _, n := range names {
		if err := inputval.Length(n.field, n.value, 0, 100, n.label); err != nil {
			return Input{}, err
		}
	}
	if out.ChildFirstName == "" && out.ParentFirstName == "" {
		return Input{}, inputval.Field("childFirstName", "A child or parent name is required")
	}
	if out.ParentEmail != "" && !inputval.IsValidEmail(out.ParentEmail) {
		return Input{}, inputval.Field("parentEmail", "Please enter a valid email address")
	}
	if out.ParentPhone != "" && !inputval.IsValidPhone(out.ParentPhone) {
		return Input{}, inputval.Field("parentPhone", "Please enter a valid phone number")
	}
	if err := inputval.Length("insuranceName", out.InsuranceName, 0, 200, "Insurance name"); err != nil {
		return Input{}, err
	}
	if err := inputval.Length("notes", out.Notes, 0, 5000, "Notes"); err != nil {
		return Input{}, err
	}
	return out, nil
}

func normalizeTask(in TaskInput) (TaskInput, error) {
	in.ClientID = strings.TrimSpace(in.ClientID)
	in.Title = inputval.PlainText(in.Title)
	in.Content = inputval.PlainText(in.Content)
	if err := inputval.Length("title", in.Title, 1, 200, "Title"); err != nil {
		return TaskInput{}, err
	}
	if err := inputval.Length("content", in.Content, 0, 10000, "Details"); err != nil {
		return TaskInput{}, err
	}
	return in, nil
}

// splitName treats the first word as the given name and the rest as the
// family name.
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func fieldStatus() error {
	return inputval.Field("status", "Unknown status")
}
