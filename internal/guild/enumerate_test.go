package guild

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedSource serves a fixed set of bans and members in afterID-cursor
// pages, recording the cursors it was asked for.
type pagedSource struct {
	bans    []Ban
	members []Member
	cursors []string
	fail    bool
}

func (p *pagedSource) Guild(string) (*Metadata, error)       { return nil, nil }
func (p *pagedSource) Roles(string) ([]Role, error)          { return nil, nil }
func (p *pagedSource) Categories(string) ([]Category, error) { return nil, nil }
func (p *pagedSource) Channels(string) ([]Channel, error)    { return nil, nil }
func (p *pagedSource) Emojis(string) ([]Emoji, error)        { return nil, nil }

func (p *pagedSource) Bans(_ string, limit int, afterID string) ([]Ban, error) {
	if p.fail {
		return nil, errors.New("listing failed")
	}
	p.cursors = append(p.cursors, afterID)
	start := 0
	for n, b := range p.bans {
		if b.UserID == afterID {
			start = n + 1
		}
	}
	end := start + limit
	if end > len(p.bans) {
		end = len(p.bans)
	}
	return p.bans[start:end], nil
}

func (p *pagedSource) Members(_ string, limit int, afterID string) ([]Member, error) {
	p.cursors = append(p.cursors, afterID)
	start := 0
	for n, m := range p.members {
		if m.UserID == afterID {
			start = n + 1
		}
	}
	end := start + limit
	if end > len(p.members) {
		end = len(p.members)
	}
	return p.members[start:end], nil
}

func TestAllBans_WalksEveryPage(t *testing.T) {
	src := &pagedSource{}
	for n := 0; n < enumeratePageSize*2+3; n++ {
		src.bans = append(src.bans, Ban{UserID: fmt.Sprintf("u%05d", n)})
	}

	bans, err := AllBans(src, "g1")
	require.NoError(t, err)
	require.Len(t, bans, enumeratePageSize*2+3)

	// Three requests, each cursor pointing at the previous page's tail.
	require.Len(t, src.cursors, 3)
	assert.Equal(t, "", src.cursors[0])
	assert.Equal(t, bans[enumeratePageSize-1].UserID, src.cursors[1])
	assert.Equal(t, bans[2*enumeratePageSize-1].UserID, src.cursors[2])
}

func TestAllBans_SinglePartialPage(t *testing.T) {
	src := &pagedSource{bans: []Ban{{UserID: "u1"}, {UserID: "u2"}}}

	bans, err := AllBans(src, "g1")
	require.NoError(t, err)
	assert.Len(t, bans, 2)
	assert.Equal(t, []string{""}, src.cursors)
}

func TestAllBans_PropagatesError(t *testing.T) {
	src := &pagedSource{fail: true}
	_, err := AllBans(src, "g1")
	assert.Error(t, err)
}

func TestAllMembers_WalksEveryPage(t *testing.T) {
	src := &pagedSource{}
	for n := 0; n < enumeratePageSize+1; n++ {
		src.members = append(src.members, Member{UserID: fmt.Sprintf("u%05d", n)})
	}

	members, err := AllMembers(src, "g1")
	require.NoError(t, err)
	assert.Len(t, members, enumeratePageSize+1)
	require.Len(t, src.cursors, 2)
	assert.Equal(t, members[enumeratePageSize-1].UserID, src.cursors[1])
}
