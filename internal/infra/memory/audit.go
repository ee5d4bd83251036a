package memory

import (
	"context"

	"github.com/harvestline/backend/internal/platform/audit"
)

type auditSink struct{ v view }

func (s auditSink) Append(_ context.Context, r *audit.Record) error {
	st, release := s.v.acquire()
	defer release()

	c := *r
	st.audit = append(st.audit, &c)
	return nil
}

func (s auditSink) List(_ context.Context, filter audit.Filter) ([]*audit.Record, error) {
	st, release := s.v.acquire()
	defer release()

	var out []*audit.Record
	for i := len(st.audit) - 1; i >= 0; i-- {
		r := st.audit[i]
		if filter.EntityType != "" && r.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != nil && r.EntityID != *filter.EntityID {
			continue
		}
		if filter.Action != nil && r.Action != *filter.Action {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	return paginate(out, 0, filter.Limit), nil
}
