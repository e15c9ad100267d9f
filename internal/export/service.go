package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/aba-directory/internal/tenancy"
	"github.com/wolfman30/aba-directory/pkg/logging"
)

var tracer = otel.Tracer("aba.internal.export")

const csvContentType = "text/csv; charset=utf-8"

// Service builds the customer list and CSV exports.
type Service struct {
	reader Reader
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates an export service.
func NewService(reader Reader, logger *logging.Logger) *Service {
	if reader == nil {
		panic("export: reader required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{reader: reader, logger: logger, now: time.Now}
}

// CustomerList returns one page of provider accounts. Admin only.
func (s *Service) CustomerList(ctx context.Context, actor tenancy.Actor, f CustomerFilter) (*CustomerPage, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	f = f.normalized()
	total, err := s.reader.CountCustomers(ctx, f)
	if err != nil {
		return nil, err
	}
	customers, err := s.reader.ListCustomers(ctx, f)
	if err != nil {
		return nil, err
	}
	s.stampAge(customers)
	return &CustomerPage{
		Customers:  customers,
		Total:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: (total + f.PageSize - 1) / f.PageSize,
	}, nil
}

func (s *Service) stampAge(customers []Customer) {
	now := s.now()
	for i := range customers {
		days := int(now.Sub(customers[i].CreatedAt).Hours() / 24)
		if days < 0 {
			days = 0
		}
		customers[i].DaysSinceSignup = days
	}
}

// ExportCSV renders one export. Inquiry exports cover the caller's own
// listing; every other kind is admin only.
func (s *Service) ExportCSV(ctx context.Context, actor tenancy.Actor, kind Kind) (*File, error) {
	ctx, span := tracer.Start(ctx, "export.csv")
	defer span.End()
	span.SetAttributes(attribute.String("aba.export_kind", string(kind)))

	if _, ok := ParseKind(string(kind)); !ok {
		return nil, ErrUnknownKind
	}
	if kind.adminOnly() && !actor.IsAdmin {
		return nil, ErrForbidden
	}

	var (
		records [][]string
		err     error
	)
	switch kind {
	case KindCustomerList:
		records, err = s.customerListRecords(ctx)
	case KindCustomers:
		records, err = s.tierRecords(ctx)
	case KindStates:
		records, err = s.stateRecords(ctx)
	case KindInquiries:
		records, err = s.inquiryRecords(ctx, actor.ProfileID)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	body, err := encodeCSV(records)
	if err != nil {
		return nil, fmt.Errorf("export: encode %s: %w", kind, err)
	}
	s.logger.Info("csv export generated", "kind", kind, "profile_id", actor.ProfileID, "rows", len(records)-1)
	return &File{
		Name:        fmt.Sprintf("%s-%s.csv", kind, s.now().UTC().Format("2006-01-02")),
		ContentType: csvContentType,
		Body:        body,
	}, nil
}

func (s *Service) customerListRecords(ctx context.Context) ([][]string, error) {
	customers, err := s.reader.ListCustomers(ctx, CustomerFilter{SortBy: SortCreatedAt, SortOrder: "desc"})
	if err != nil {
		return nil, err
	}
	s.stampAge(customers)
	records := [][]string{{
		"Agency Name", "Email", "Plan Tier", "Effective Tier", "Subscription Status",
		"Listings", "Locations", "States", "Published", "Onboarded", "Signed Up", "Days Since Signup",
	}}
	for _, c := range customers {
		records = append(records, []string{
			c.AgencyName,
			c.ContactEmail,
			string(c.PlanTier),
			string(c.EffectiveTier),
			string(c.SubscriptionStatus),
			strconv.Itoa(c.ListingCount),
			strconv.Itoa(c.LocationCount),
			strings.Join(c.States, "; "),
			yesNo(c.HasPublishedListing),
			yesNo(c.OnboardingCompletedAt != nil),
			c.CreatedAt.UTC().Format("2006-01-02"),
			strconv.Itoa(c.DaysSinceSignup),
		})
	}
	return records, nil
}

func (s *Service) tierRecords(ctx context.Context) ([][]string, error) {
	counts, err := s.reader.TierCounts(ctx)
	if err != nil {
		return nil, err
	}
	records := [][]string{{"Plan Tier", "Customers", "Active Subscriptions"}}
	total, active := 0, 0
	for _, c := range counts {
		records = append(records, []string{c.Tier.DisplayName(), strconv.Itoa(c.Total), strconv.Itoa(c.Active)})
		total += c.Total
		active += c.Active
	}
	records = append(records, []string{"Total", strconv.Itoa(total), strconv.Itoa(active)})
	return records, nil
}

func (s *Service) stateRecords(ctx context.Context) ([][]string, error) {
	counts, err := s.reader.StateCounts(ctx)
	if err != nil {
		return nil, err
	}
	records := [][]string{{"State", "Providers", "Locations"}}
	for _, c := range counts {
		records = append(records, []string{c.State, strconv.Itoa(c.Providers), strconv.Itoa(c.Locations)})
	}
	return records, nil
}

func (s *Service) inquiryRecords(ctx context.Context, profileID string) ([][]string, error) {
	if profileID == "" {
		return nil, ErrForbidden
	}
	rows, err := s.reader.ProviderInquiries(ctx, profileID)
	if err != nil {
		return nil, err
	}
	records := [][]string{{
		"Received", "Family Name", "Email", "Phone", "Child Age", "Location", "Status", "Referral Source", "Message",
	}}
	for _, r := range rows {
		records = append(records, []string{
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.FamilyName,
			r.FamilyEmail,
			r.FamilyPhone,
			r.ChildAge,
			r.Location,
			r.Status,
			r.ReferralSource,
			r.Message,
		})
	}
	return records, nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// encodeCSV writes records, neutralizing cells a spreadsheet would
// evaluate as formulas.
func encodeCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for i, record := range records {
		if i > 0 {
			for j, cell := range record {
				record[j] = neutralize(cell)
			}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func neutralize(cell string) string {
	if cell == "" {
		return cell
	}
	switch cell[0] {
	case '=', '+', '-', '@':
		return "'" + cell
	}
	return cell
}
