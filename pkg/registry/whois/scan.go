package whois

import (
	"strings"

	"domainwatch/pkg/registry"
)

type field int

const (
	fieldNone field = iota
	fieldExpiration
	fieldUpdated
	fieldCreated
	fieldRegistrar
	fieldRegistrarURL
	fieldAbuse
	fieldNameserver
	fieldStatus
)

// keys maps lower-cased WHOIS keys to record fields, covering the gTLD
// defaults and the ccTLD spellings (.nl, .eu, .de, .uk, .jp, .ru and others).
var keys = map[string]field{ //nolint: gochecknoglobals
	"registry expiry date":                   fieldExpiration,
	"registrar registration expiration date": fieldExpiration,
	"expiration date":                        fieldExpiration,
	"expiry date":                            fieldExpiration,
	"expire date":                            fieldExpiration,
	"expires":                                fieldExpiration,
	"expires on":                             fieldExpiration,
	"expiration time":                        fieldExpiration,
	"paid-till":                              fieldExpiration,
	"renewal date":                           fieldExpiration,
	"valid until":                            fieldExpiration,
	"domain expiration date":                 fieldExpiration,
	"有効期限":                                   fieldExpiration,
	"updated date":                           fieldUpdated,
	"last updated":                           fieldUpdated,
	"last update":                            fieldUpdated,
	"last-update":                            fieldUpdated,
	"last modified":                          fieldUpdated,
	"changed":                                fieldUpdated,
	"modified":                               fieldUpdated,
	"最終更新":                                   fieldUpdated,
	"creation date":                          fieldCreated,
	"created":                                fieldCreated,
	"registered on":                          fieldCreated,
	"registration time":                      fieldCreated,
	"registrar":                              fieldRegistrar,
	"sponsoring registrar":                   fieldRegistrar,
	"registrar name":                         fieldRegistrar,
	"registrar url":                          fieldRegistrarURL,
	"referral url":                           fieldRegistrarURL,
	"registrar abuse contact email":          fieldAbuse,
	"abuse contact":                          fieldAbuse,
	"abuse-mailbox":                          fieldAbuse,
	"name server":                            fieldNameserver,
	"name servers":                           fieldNameserver,
	"nameserver":                             fieldNameserver,
	"nameservers":                            fieldNameserver,
	"nserver":                                fieldNameserver,
	"domain servers in listed order":         fieldNameserver,
	"domain nameservers":                     fieldNameserver,
	"ネームサーバ":                                 fieldNameserver,
	"domain status":                          fieldStatus,
	"status":                                 fieldStatus,
	"state":                                  fieldStatus,
	"状態":                                     fieldStatus,
}

// scan walks key/value lines and fills fields rec does not have yet. A key
// with an empty value opens a block: the indented lines that follow are its
// values, which is how .uk, .nl and .eu list registrars and nameservers.
func scan(rec *registry.Record, raw string) {
	var (
		expiration, updated, created string
		registrar, registrarURL      string
		abuse                        string
		nameservers, flags           []string
	)

	set := func(f field, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		switch f {
		case fieldExpiration:
			if expiration == "" {
				expiration = value
			}
		case fieldUpdated:
			if updated == "" {
				updated = value
			}
		case fieldCreated:
			if created == "" {
				created = value
			}
		case fieldRegistrar:
			if registrar == "" {
				registrar = stripTag(strings.TrimPrefix(value, "Name:"))
			}
		case fieldRegistrarURL:
			if registrarURL == "" {
				registrarURL = value
			}
		case fieldAbuse:
			if abuse == "" && strings.Contains(value, "@") {
				abuse = value
			}
		case fieldNameserver:
			nameservers = append(nameservers, value)
		case fieldStatus:
			flags = append(flags, value)
		case fieldNone:
		}
	}

	block := fieldNone
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "%") || strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, ">>>") {
			block = fieldNone

			continue
		}

		indented := line != strings.TrimLeft(line, " \t")
		key, value, ok := splitLine(trimmed)
		if block != fieldNone && indented {
			if ok && keys[key] == fieldNone && block == fieldRegistrar {
				// "Name: Example BV" inside a registrar block.
				if key == "name" || key == "organisation" || key == "organization" {
					set(fieldRegistrar, value)
				}

				continue
			}
			if !ok || keys[key] == fieldNone {
				set(block, trimmed)

				continue
			}
		}

		if !ok {
			block = fieldNone

			continue
		}
		f := keys[key]
		if value == "" {
			block = f

			continue
		}
		block = fieldNone
		set(f, value)
	}

	if rec.ExpirationDate == nil {
		rec.ExpirationDate = registry.ParseDatePtr(expiration)
	}
	if rec.UpdatedDate == nil {
		rec.UpdatedDate = registry.ParseDatePtr(updated)
	}
	if rec.CreatedDate == nil {
		rec.CreatedDate = registry.ParseDatePtr(created)
	}
	if rec.Registrar == "" {
		rec.Registrar = registrar
	}
	if rec.RegistrarURL == "" {
		rec.RegistrarURL = registrarURL
	}
	if rec.AbuseEmail == "" {
		rec.AbuseEmail = abuse
	}
	if len(rec.Nameservers) == 0 {
		rec.Nameservers = normalizeNameservers(nameservers)
	}
	if len(rec.StatusFlags) == 0 {
		rec.StatusFlags = normalizeFlags(flags)
	}
}

// splitLine splits "Key: value" and the JPRS "[Key]  value" form. The key is
// lower-cased.
func splitLine(line string) (string, string, bool) {
	// JPRS numbers its lines: "a. [Domain Name]  EXAMPLE.JP".
	if len(line) > 3 && line[1] == '.' && line[2] == ' ' {
		line = strings.TrimSpace(line[3:])
	}
	if strings.HasPrefix(line, "[") {
		end := strings.Index(line, "]")
		if end <= 1 {
			return "", "", false
		}

		return strings.ToLower(strings.TrimSpace(line[1:end])), strings.TrimSpace(line[end+1:]), true
	}

	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	// A URL or time is not a key.
	if strings.Contains(key, "/") || len(key) > 48 {
		return "", "", false
	}

	return strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value), true
}

// stripTag removes a trailing Nominet style "[Tag = KEYSYS]".
func stripTag(s string) string {
	if i := strings.Index(s, " [Tag = "); i > 0 {
		s = s[:i]
	}

	return strings.TrimSpace(s)
}
