package batch

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/pkg/salesforce"
)

// LeadSource tags records created by the sync.
const LeadSource = "Instagram"

const maxDescription = 32000

// SalesforcePusher upserts leads into a Salesforce object keyed by handle.
type SalesforcePusher struct {
	client      salesforce.Client
	sObject     string
	handleField string
}

// NewSalesforcePusher targets sObject, matching records on handleField.
func NewSalesforcePusher(c salesforce.Client, sObject, handleField string) *SalesforcePusher {
	return &SalesforcePusher{client: c, sObject: sObject, handleField: handleField}
}

// Push creates or updates the record for lead and returns its ID.
func (s *SalesforcePusher) Push(ctx context.Context, lead *model.Lead) (string, error) {
	if lead == nil {
		return "", eris.New("batch: nil lead")
	}
	id, _, err := salesforce.Upsert(ctx, s.client, s.sObject, s.handleField, lead.Username, LeadFields(lead))
	if err != nil {
		return "", eris.Wrapf(err, "batch: push %s", lead.Username)
	}
	return id, nil
}

// LeadFields maps a lead onto standard Salesforce Lead fields. LastName and
// Company are required by Salesforce and fall back to the handle.
func LeadFields(lead *model.Lead) map[string]any {
	fields := map[string]any{
		"LeadSource": LeadSource,
		"LastName":   lead.Username,
		"Company":    lead.Username,
	}
	if p := lead.Profile.Profile; p != nil {
		if name := strings.TrimSpace(p.FullName); name != "" {
			fields["Company"] = name
			first, last := splitName(name)
			fields["LastName"] = last
			if first != "" {
				fields["FirstName"] = first
			}
		}
		if p.ExternalURL != "" {
			fields["Website"] = p.ExternalURL
		}
	}
	if a := lead.Analysis.Analysis; a != nil && a.Summary != "" {
		desc := a.Summary
		if len(desc) > maxDescription {
			desc = desc[:maxDescription]
		}
		fields["Description"] = desc
	}
	return fields
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 1 {
		return "", parts[0]
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}
