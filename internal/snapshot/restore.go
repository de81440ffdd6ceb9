package snapshot

import (
	"context"
	"fmt"
	"log"
	"sync"

	"guildkeeper/internal/guild"
	"guildkeeper/pkg/util"
)

// EntityError records one failed entity during a restore pass.
type EntityError struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Err  error  `json:"-"`
}

func (e EntityError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Name, e.Err)
}

// Report summarizes a restore pass. A partially restored guild is the
// documented outcome of partial failure; nothing is rolled back.
type Report struct {
	RolesCreated      int
	RolesReused       int
	CategoriesCreated int
	ChannelsCreated   int
	EmojisCreated     int
	Errors            []EntityError
}

func (r *Report) fail(kind, name string, err error) {
	r.Errors = append(r.Errors, EntityError{Kind: kind, Name: name, Err: err})
	log.Printf("[WARN] Restore: %s %q failed: %v", kind, name, err)
}

// restoreContext holds the name->identity maps built while restoring.
// It lives for exactly one pass and is never persisted.
type restoreContext struct {
	roles      map[string]string // role name -> role ID in the target guild
	categories map[string]string // category name -> channel ID in the target guild
}

// Restorer replays snapshot documents against a target guild.
type Restorer struct {
	Src   guild.DataSource
	Mut   guild.Mutator
	Fetch guild.BlobFetcher

	// ChannelWorkers bounds concurrent channel creation. Stages still run
	// strictly in order: roles, categories, channels, emojis.
	ChannelWorkers int
}

// Restore runs the four-stage pipeline. Every entity is attempted
// independently; failures are collected in the report and never abort
// the pass. The returned error is non-nil only when the pass could not
// start at all (invalid document, unreachable target guild).
func (r *Restorer) Restore(ctx context.Context, guildID string, doc *Document) (*Report, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	existing, err := r.Src.Roles(guildID)
	if err != nil {
		return nil, fmt.Errorf("read target guild roles: %w", err)
	}

	report := &Report{}
	rc := &restoreContext{
		roles:      make(map[string]string),
		categories: make(map[string]string),
	}

	r.restoreRoles(guildID, doc, existing, rc, report)
	r.restoreCategories(guildID, doc, rc, report)
	r.restoreChannels(ctx, guildID, doc, rc, report)
	r.restoreEmojis(ctx, guildID, doc, report)

	log.Printf("[INFO] Restore into %s done: %d roles (%d reused), %d categories, %d channels, %d emojis, %d errors",
		guildID, report.RolesCreated, report.RolesReused, report.CategoriesCreated,
		report.ChannelsCreated, report.EmojisCreated, len(report.Errors))
	return report, nil
}

// Stage 1. Reconciliation is by name only: IDs never survive a
// cross-guild restore. The unicode emoji is applied in a second call
// because role creation rejects it.
func (r *Restorer) restoreRoles(guildID string, doc *Document, existing []guild.Role, rc *restoreContext, report *Report) {
	byName := make(map[string]string, len(existing))
	for _, role := range existing {
		byName[role.Name] = role.ID
	}

	for _, rs := range doc.Roles {
		if rs.Managed {
			// Integration-owned roles are created by their integration,
			// not by us.
			continue
		}
		if id, ok := byName[rs.Name]; ok {
			rc.roles[rs.Name] = id
			report.RolesReused++
			continue
		}

		created, err := r.Mut.CreateRole(guildID, guild.RoleCreate{
			Name:        rs.Name,
			Color:       rs.Color,
			Hoist:       rs.Hoist,
			Mentionable: rs.Mentionable,
			Permissions: rs.Permissions,
		})
		if err != nil {
			report.fail("role", rs.Name, err)
			continue
		}
		rc.roles[rs.Name] = created.ID
		report.RolesCreated++

		if rs.UnicodeEmoji != "" {
			if err := r.Mut.SetRoleEmoji(guildID, created.ID, rs.UnicodeEmoji); err != nil {
				report.fail("role-emoji", rs.Name, err)
			}
		}
	}
}

// Stage 2. Categories are created name-only, then their overwrites are
// resolved against the role map built in stage 1.
func (r *Restorer) restoreCategories(guildID string, doc *Document, rc *restoreContext, report *Report) {
	for _, cs := range doc.Categories {
		created, err := r.Mut.CreateCategory(guildID, cs.Name)
		if err != nil {
			report.fail("category", cs.Name, err)
			continue
		}
		rc.categories[cs.Name] = created.ID
		report.CategoriesCreated++

		r.applyOverwrites(guildID, created.ID, "category", cs.Name, cs.Overwrites, rc, report)
	}
}

// Stage 3. Channels may be created concurrently; the report and context
// maps are guarded since workers share them. rc.categories is only read
// here, stage 2 has fully completed.
func (r *Restorer) restoreChannels(ctx context.Context, guildID string, doc *Document, rc *restoreContext, report *Report) {
	var mu sync.Mutex

	_ = util.Parallel(ctx, doc.Channels, r.ChannelWorkers, func(ctx context.Context, cs ChannelSnapshot) error {
		created, err := r.Mut.CreateChannel(guildID, guild.ChannelCreate{
			Name:      cs.Name,
			Kind:      cs.Kind,
			ParentID:  rc.categories[cs.ParentCategory],
			Topic:     cs.Topic,
			NSFW:      cs.NSFW,
			Slowmode:  cs.Slowmode,
			Bitrate:   cs.Bitrate,
			UserLimit: cs.UserLimit,
		})
		if err != nil {
			mu.Lock()
			report.fail("channel", cs.Name, err)
			mu.Unlock()
			return nil
		}

		mu.Lock()
		report.ChannelsCreated++
		r.applyOverwrites(guildID, created.ID, "channel", cs.Name, cs.Overwrites, rc, report)
		mu.Unlock()
		return nil
	})
}

// Stage 4. The only stage with an outbound network fetch before the
// guild mutation. Each emoji is fetched and created independently.
func (r *Restorer) restoreEmojis(ctx context.Context, guildID string, doc *Document, report *Report) {
	for _, es := range doc.Emojis {
		if es.Managed {
			continue
		}
		image, err := r.Fetch.Fetch(ctx, es.SourceURL)
		if err != nil {
			report.fail("emoji", es.Name, err)
			continue
		}
		if err := r.Mut.CreateEmoji(guildID, es.Name, es.Animated, image); err != nil {
			report.fail("emoji", es.Name, err)
			continue
		}
		report.EmojisCreated++
	}
}

// applyOverwrites resolves each subject name against the roles created
// or reused this pass. Unresolvable subjects are skipped silently: the
// role itself already produced an error in stage 1 if it failed.
func (r *Restorer) applyOverwrites(guildID, targetID, kind, name string, ows map[string]OverwritePair, rc *restoreContext, report *Report) {
	for roleName, pair := range ows {
		roleID, ok := rc.roles[roleName]
		if !ok {
			continue
		}
		err := r.Mut.SetOverwrite(guildID, targetID, guild.Overwrite{
			SubjectID:   roleID,
			SubjectType: "role",
			Allow:       pair.Allow,
			Deny:        pair.Deny,
		})
		if err != nil {
			report.fail(kind+"-overwrite", name, err)
		}
	}
}
