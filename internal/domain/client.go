package domain

// Client is the slice of the external client directory the ledger needs:
// a display name and the contact fields free-text search matches against.
type Client struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Instagram string `json:"instagram"`
	Phone     string `json:"phone"`
}

// ClientIndex maps client ids to clients for search matching.
type ClientIndex map[string]Client

// NewClientIndex indexes clients by id.
func NewClientIndex(clients []Client) ClientIndex {
	idx := make(ClientIndex, len(clients))
	for _, c := range clients {
		idx[c.ID] = c
	}
	return idx
}
