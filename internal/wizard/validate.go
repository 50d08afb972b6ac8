package wizard

import (
	"math"
	"net/mail"
	"slices"
	"sort"
	"strconv"
	"strings"

	"timetable-service/internal/genre"
	"timetable-service/internal/metadata"
)

// ValidationErrors maps a basic-info field key to the message shown under it.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return strings.Join(parts, ", ")
}

// ValidateBasicInfo checks info against the catalog form of g.
func ValidateBasicInfo(g genre.Genre, info metadata.BasicInfo) ValidationErrors {
	errs := ValidationErrors{}
	for _, def := range genre.Fields(g) {
		raw := strings.TrimSpace(info.Value(def.Key))
		if raw == "" {
			if def.Required {
				errs[def.Key] = messageFor(def, "は必須です")
			}
			continue
		}

		switch def.Kind {
		case genre.KindEmail:
			if !validEmail(raw) {
				errs[def.Key] = messageFor(def, "の形式が正しくありません")
			}
		case genre.KindNumber:
			if n, err := strconv.ParseFloat(raw, 64); err != nil || n < 0 {
				errs[def.Key] = def.Label + "は0以上の数値で入力してください"
			}
		case genre.KindInteger:
			if n, err := strconv.ParseFloat(raw, 64); err != nil || n < 0 || n != math.Trunc(n) {
				errs[def.Key] = def.Label + "は0以上の整数で入力してください"
			}
		case genre.KindSelect:
			if len(def.Options) > 0 && !slices.Contains(def.Options, raw) {
				errs[def.Key] = def.Label + "の値が正しくありません"
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func messageFor(def genre.FieldDef, suffix string) string {
	if def.Message != "" {
		return def.Message
	}
	return def.Label + suffix
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, ".")
}
