package mailactivate

// DomainCategory is the kind of mailbox domain. Its integer value is the
// mail_type sent when purchasing a mailbox.
type DomainCategory int

const (
	// CategoryZone is a zone: a group of domains the service allocates from.
	CategoryZone DomainCategory = 1
	// CategoryPopular is a concrete, well-known email domain.
	CategoryPopular DomainCategory = 2
)

func (c DomainCategory) String() string {
	switch c {
	case CategoryZone:
		return "zone"
	case CategoryPopular:
		return "popular"
	default:
		return "unknown"
	}
}

// Domain is a mailbox domain that can be purchased for a site.
type Domain struct {
	// Name is a domain such as "outlook.com" or a zone name such as "xyz".
	Name     string
	Category DomainCategory
	// Cost is the mailbox price, or -1 when unknown.
	Cost float64
	// Count is the number of available mailboxes, or -1 when not applicable.
	// Only popular domains report it.
	Count int
}

// NewDomain returns a domain with unknown cost and count, for callers that
// want a specific domain without listing first.
func NewDomain(name string, category DomainCategory) Domain {
	return Domain{
		Name:     name,
		Category: category,
		Cost:     -1,
		Count:    -1,
	}
}

func (d Domain) String() string {
	return d.Name
}
