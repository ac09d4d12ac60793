package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/storage"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Seed is the domains file read by offline runs.
//
//	groups:
//	  - name: ops
//	    channels:
//	      - type: telegram
//	        config: {bot_token: "${TG_TOKEN}", chat_id: "-100123"}
//	domains:
//	  - name: example.com
//	    group: ops
//	  - name: example.nl
//	    expiration_date: 2026-01-01
//	    status: active
//
// Channel config values go through os.ExpandEnv so secrets can stay out of
// the file.
type Seed struct {
	Groups  []SeedGroup  `yaml:"groups"`
	Domains []SeedDomain `yaml:"domains"`
}

type SeedGroup struct {
	Name     string        `yaml:"name"`
	Channels []SeedChannel `yaml:"channels"`
}

type SeedChannel struct {
	Name   string            `yaml:"name"`
	Type   string            `yaml:"type"`
	Format string            `yaml:"format"`
	Config map[string]string `yaml:"config"`
	Active *bool             `yaml:"active"`
}

type SeedDomain struct {
	Name  string `yaml:"name"`
	Group string `yaml:"group"`
	// ExpirationDate and Status are the last known values, as if a previous
	// run had stored them.
	ExpirationDate string `yaml:"expiration_date"`
	Status         string `yaml:"status"`
	Active         *bool  `yaml:"active"`
}

// GroupID derives a stable group ID from its name.
func GroupID(name string) domain.GroupID {
	return domain.GroupID(uuid.NewSHA1(uuid.NameSpaceURL, []byte("domainwatch:group:"+name)))
}

// LoadSeed reads and decodes a domains file.
func LoadSeed(path string) (*Seed, error) {
	b, err := os.ReadFile(path) //nolint: gosec
	if err != nil {
		return nil, fmt.Errorf("could not read domains file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("could not decode domains file: %w", err)
	}

	return &seed, nil
}

// Apply validates the seed and writes its groups and domains to s. Groups
// that already have active channels keep them, so applying a seed twice does
// not duplicate channels.
func (seed *Seed) Apply(ctx context.Context, s storage.AllStorage) error {
	groups := make(map[string]domain.GroupID, len(seed.Groups))
	var channels []domain.Channel
	for _, g := range seed.Groups {
		if g.Name == "" {
			return errors.New("group without name")
		}
		id := GroupID(g.Name)
		groups[g.Name] = id

		for i, c := range g.Channels {
			ch := domain.Channel{
				GroupID:  id,
				Name:     c.Name,
				Type:     domain.ChannelType(c.Type),
				Format:   domain.ChannelFormat(c.Format),
				Config:   make(map[string]string, len(c.Config)),
				IsActive: c.Active == nil || *c.Active,
			}
			if ch.Name == "" {
				ch.Name = fmt.Sprintf("%s-%s-%d", g.Name, c.Type, i+1)
			}
			if !ch.Type.Valid() {
				return fmt.Errorf("channel %s: unsupported type %q", ch.Name, c.Type)
			}
			if !ch.Format.Valid() {
				return fmt.Errorf("channel %s: unsupported format %q", ch.Name, c.Format)
			}
			for k, v := range c.Config {
				ch.Config[k] = os.ExpandEnv(v)
			}
			channels = append(channels, ch)
		}
	}

	domains := make([]domain.Domain, 0, len(seed.Domains))
	for _, sd := range seed.Domains {
		name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(sd.Name)), ".")
		if name == "" || !strings.Contains(name, ".") {
			return fmt.Errorf("invalid domain name %q", sd.Name)
		}

		d := domain.Domain{
			Name:     name,
			Status:   domain.Status(sd.Status),
			IsActive: sd.Active == nil || *sd.Active,
		}
		if d.Status == "" {
			d.Status = domain.StatusUnknown
		}
		if !d.Status.Valid() {
			return fmt.Errorf("domain %s: unknown status %q", name, sd.Status)
		}
		if sd.Group != "" {
			id, ok := groups[sd.Group]
			if !ok {
				return fmt.Errorf("domain %s: unknown group %q", name, sd.Group)
			}
			d.NotificationGroupID = &id
		}
		if sd.ExpirationDate != "" {
			exp, err := parseSeedDate(sd.ExpirationDate)
			if err != nil {
				return fmt.Errorf("domain %s: %w", name, err)
			}
			d.ExpirationDate = &exp
		}
		domains = append(domains, d)
	}

	var fresh []domain.Channel
	existing := make(map[domain.GroupID]bool)
	for _, ch := range channels {
		has, ok := existing[ch.GroupID]
		if !ok {
			active, err := s.ActiveChannels(ctx, ch.GroupID)
			if err != nil {
				return fmt.Errorf("could not read channels: %w", err)
			}
			has = len(active) > 0
			existing[ch.GroupID] = has
		}
		if !has {
			fresh = append(fresh, ch)
		}
	}
	if _, err := s.StoreChannels(ctx, fresh...); err != nil {
		return fmt.Errorf("could not store seeded channels: %w", err)
	}
	if _, err := s.UpsertDomains(ctx, domains...); err != nil {
		return fmt.Errorf("could not store seeded domains: %w", err)
	}

	return nil
}

func parseSeedDate(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid expiration date %q", v)
}
