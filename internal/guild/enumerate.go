package guild

// Discord caps ban and member listing at 1000 entries per request.
const enumeratePageSize = 1000

// AllBans walks the ban list page by page until exhausted.
func AllBans(src DataSource, guildID string) ([]Ban, error) {
	var out []Ban
	afterID := ""
	for {
		page, err := src.Bans(guildID, enumeratePageSize, afterID)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < enumeratePageSize {
			return out, nil
		}
		afterID = page[len(page)-1].UserID
	}
}

// AllMembers walks the member list page by page until exhausted.
func AllMembers(src DataSource, guildID string) ([]Member, error) {
	var out []Member
	afterID := ""
	for {
		page, err := src.Members(guildID, enumeratePageSize, afterID)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < enumeratePageSize {
			return out, nil
		}
		afterID = page[len(page)-1].UserID
	}
}
