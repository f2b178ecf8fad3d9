package jira

import "encoding/json"

// namedFieldKeys are the fields TicketFields binds explicitly; everything
// else lands in Extra.
var namedFieldKeys = map[string]struct{}{
	"summary":     {},
	"description": {},
	"status":      {},
	"priority":    {},
	"issuetype":   {},
	"resolution":  {},
	"assignee":    {},
	"reporter":    {},
	"created":     {},
	"updated":     {},
	"duedate":     {},
	"labels":      {},
	"timespent":   {},
	"comment":     {},
}

// UnmarshalJSON binds the named fields and collects the remainder, custom
// fields included, into Extra.
func (f *TicketFields) UnmarshalJSON(data []byte) error {
	type plain TicketFields
	var named plain
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for key := range namedFieldKeys {
		delete(all, key)
	}

	*f = TicketFields(named)
	if len(all) > 0 {
		f.Extra = all
	}
	return nil
}
