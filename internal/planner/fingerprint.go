package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/anthropics/lix/internal/model"
	"github.com/anthropics/lix/internal/value"
)

// Fingerprint computes the stable identity named in spec.md section 4.I:
// a hash over canonical statement texts, ordered schema registrations,
// the postprocess variant tag and schema_key, and the positional
// sequence of parameter variant tags (not values). Two inputs producing
// identical fingerprints must produce byte-identical prepared sql_texts.
func Fingerprint(statementTexts []string, params []value.Value, registrations []model.SchemaRegistration, postprocess *model.PostprocessPlan) string {
	var b strings.Builder
	for _, s := range statementTexts {
		b.WriteString(s)
		b.WriteByte('\x1f')
	}
	for _, p := range params {
		b.WriteString(strconv.Itoa(int(p.Kind)))
		b.WriteByte('\x1e')
	}
	for _, r := range registrations {
		b.WriteString(r.SchemaKey)
		b.WriteByte('\x1d')
		b.WriteString(r.SchemaVersion)
		b.WriteByte('\x1f')
	}
	if postprocess != nil {
		b.WriteString(strconv.Itoa(int(postprocess.Kind)))
		b.WriteByte('\x1d')
		b.WriteString(postprocess.SchemaKey)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
