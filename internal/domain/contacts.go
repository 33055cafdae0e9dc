package domain

import (
	"sort"
	"strings"
)

// SortContacts orders merged contacts by name, then newest first
func SortContacts(contacts []ContactDTO) {
	sort.SliceStable(contacts, func(i, j int) bool {
		ni, nj := strings.ToLower(contacts[i].Name), strings.ToLower(contacts[j].Name)
		if ni != nj {
			return ni < nj
		}
		return contacts[i].CreatedAt.After(contacts[j].CreatedAt)
	})
}

// LeadContact converts a lead view into a merged contact row
func LeadContact(lead LeadDTO) ContactDTO {
	return ContactDTO{
		ID:        lead.ID,
		Kind:      ContactKindLead,
		Name:      lead.Name,
		Phone:     lead.Phone,
		Email:     lead.Email,
		Status:    lead.Status,
		CreatedAt: lead.CreatedAt,
	}
}

// CustomerContact converts a customer view into a merged contact row
func CustomerContact(customer CustomerDTO) ContactDTO {
	return ContactDTO{
		ID:        customer.ID,
		Kind:      ContactKindCustomer,
		Name:      customer.Name,
		Phone:     customer.Phone,
		Email:     customer.Email,
		CreatedAt: customer.CreatedAt,
	}
}
