package communications

// builtins are the system templates every agency starts with, in display
// order.
var builtins = []Template{
	{
		Slug:           "inquiry-received",
		Name:           "Inquiry received",
		LifecycleStage: "inquiry",
		Subject:        "Thanks for reaching out to {agency_name}",
		Body: "Hi {parent_name},\n\n" +
			"Thank you for contacting {agency_name} about ABA therapy for {client_name}. " +
			"A member of our team will follow up within two business days.\n\n" +
			"You can learn more about our services at {resources_link}.\n\n" +
			"{agency_name}\n{agency_phone}",
		MergeFields: []string{"parent_name", "agency_name", "client_name", "resources_link", "agency_phone"},
	},
	{
		Slug:           "intake-packet",
		Name:           "Intake packet",
		LifecycleStage: "intake_pending",
		Subject:        "Next steps for {client_name}",
		Body: "Hi {parent_name},\n\n" +
			"To get {client_name} started, please complete our intake form: {intake_link}\n\n" +
			"Have your {insurance_name} card ready. Questions? Reply to this email or call {agency_phone}.\n\n" +
			"{agency_name}",
		MergeFields: []string{"parent_name", "client_name", "intake_link", "insurance_name", "agency_phone", "agency_name"},
	},
	{
		Slug:           "insurance-verification",
		Name:           "Insurance verification",
		LifecycleStage: "intake_pending",
		Subject:        "Verifying {insurance_name} coverage for {client_name}",
		Body: "Hi {parent_name},\n\n" +
			"We are verifying ABA benefits with {insurance_name}. This usually takes five to ten business days, " +
			"and we will let you know what we learn.\n\n" +
			"{agency_name}\n{agency_email}",
		MergeFields: []string{"parent_name", "insurance_name", "client_name", "agency_name", "agency_email"},
	},
	{
		Slug:           "waitlist-update",
		Name:           "Waitlist update",
		LifecycleStage: "waitlist",
		Subject:        "{client_name} is on our waitlist",
		Body: "Hi {parent_name},\n\n" +
			"{client_name} has been added to the {agency_name} waitlist. We will contact you as soon as a spot opens. " +
			"If anything changes on your end, reach us at {contact_link}.\n\n" +
			"{agency_name}",
		MergeFields: []string{"parent_name", "client_name", "agency_name", "contact_link"},
	},
	{
		Slug:           "assessment-scheduled",
		Name:           "Assessment scheduled",
		LifecycleStage: "assessment",
		Subject:        "Assessment scheduled for {client_name}",
		Body: "Hi {parent_name},\n\n" +
			"{client_name}'s assessment is scheduled for {assessment_date} at {assessment_time}.\n\n" +
			"Location: {assessment_location}\n\n" +
			"Please bring any prior evaluations and your {insurance_name} card. Call {agency_phone} if you need to reschedule.\n\n" +
			"{agency_name}",
		MergeFields: []string{
			"parent_name", "client_name", "assessment_date", "assessment_time",
			"assessment_location", "insurance_name", "agency_phone", "agency_name",
		},
	},
	{
		Slug:           "services-starting",
		Name:           "Services starting",
		LifecycleStage: "active",
		Subject:        "Welcome to {agency_name}",
		Body: "Hi {parent_name},\n\n" +
			"We are excited to begin services with {client_name}. Your care team will reach out to confirm the first session.\n\n" +
			"Resources for families: {resources_link}\n\n" +
			"{agency_name}\n{agency_phone}",
		MergeFields: []string{"parent_name", "client_name", "agency_name", "resources_link", "agency_phone"},
	},
	{
		Slug:           "general",
		Name:           "General message",
		LifecycleStage: "any",
		Subject:        "A message from {agency_name}",
		Body:           "Hi {parent_name},\n\n\n\n{agency_name}",
		MergeFields:    []string{"parent_name", "agency_name"},
	},
}

// Templates returns the built-in templates in display order.
func Templates() []Template {
	out := make([]Template, len(builtins))
	for i, t := range builtins {
		t.MergeFields = append([]string(nil), t.MergeFields...)
		out[i] = t
	}
	return out
}

// TemplateBySlug looks up a built-in template.
func TemplateBySlug(slug string) (Template, error) {
	for _, t := range Templates() {
		if t.Slug == slug {
			return t, nil
		}
	}
	return Template{}, ErrTemplateNotFound
}
