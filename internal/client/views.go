package client

import (
	"context"
	"sync"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/lifecycle"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Contacts fetches leads and customers concurrently and merges them into one sorted list.
// Either fetch failing fails the whole view.
func (c *Client) Contacts(ctx context.Context) ([]domain.ContactDTO, error) {
	var (
		leads     []domain.LeadDTO
		customers []domain.CustomerDTO
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leads, err = c.Leads(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		customers, err = c.Customers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	contacts := make([]domain.ContactDTO, 0, len(leads)+len(customers))
	for _, lead := range leads {
		contacts = append(contacts, domain.LeadContact(lead))
	}
	for _, customer := range customers {
		contacts = append(contacts, domain.CustomerContact(customer))
	}
	domain.SortContacts(contacts)
	return contacts, nil
}

// TechnicianStats pairs a technician with performance computed from their orders
type TechnicianStats struct {
	Technician  domain.TechnicianDTO
	Performance lifecycle.TechnicianPerformance
	Err         error
}

// TechnicianPerformance loads every technician's orders concurrently. A failed fetch
// is logged and reported on its own row without cancelling the others.
func (c *Client) TechnicianPerformance(ctx context.Context, technicians []domain.TechnicianDTO) []TechnicianStats {
	stats := make([]TechnicianStats, len(technicians))

	var wg sync.WaitGroup
	for i, tech := range technicians {
		wg.Add(1)
		go func(i int, tech domain.TechnicianDTO) {
			defer wg.Done()
			stats[i].Technician = tech

			orders, err := c.TechnicianProjects(ctx, tech.ID)
			if err != nil {
				c.logger.Warn("failed to load technician projects",
					zap.String("technician_id", tech.ID.String()),
					zap.Error(err),
				)
				stats[i].Err = err
				return
			}
			stats[i].Performance = lifecycle.Performance(orders)
		}(i, tech)
	}
	wg.Wait()

	return stats
}
