package record

import (
	"sort"

	"github.com/use-agent/vesselscout/models"
)

// Proposal is one candidate value an extractor offers for a field.
type Proposal struct {
	Field Field
	Value any
}

// Propose is shorthand for building a Proposal.
func Propose(f Field, v any) Proposal {
	return Proposal{Field: f, Value: v}
}

// Provenance maps each populated field to the source that set it.
type Provenance map[Field]Source

// Strings renders p with plain string keys for JSON output.
func (p Provenance) Strings() map[string]string {
	out := make(map[string]string, len(p))
	for f, s := range p {
		out[string(f)] = string(s)
	}
	return out
}

// Reconciler applies extractor proposals to one record under the
// first-writer-wins rule. Sources must be applied in Priority order; within
// one source the first valid proposal for a field wins.
type Reconciler struct {
	rec      models.VesselRecord
	prov     Provenance
	validate Validator
}

// NewReconciler starts from base, crediting its identifiers to SourceCaller.
func NewReconciler(base models.VesselRecord) *Reconciler {
	r := &Reconciler{
		rec:      base,
		prov:     make(Provenance),
		validate: Normalize,
	}
	for _, f := range Fields {
		if IsSet(&base, f) {
			r.prov[f] = SourceCaller
		}
	}
	return r
}

// Apply merges the proposals of src and returns the fields it populated.
func (r *Reconciler) Apply(src Source, proposals []Proposal) []Field {
	var accepted []Field
	for _, p := range proposals {
		next, ok := SetIfAbsent(r.rec, p.Field, p.Value, r.validate)
		if !ok {
			continue
		}
		r.rec = next
		r.prov[p.Field] = src
		accepted = append(accepted, p.Field)
	}
	return accepted
}

// Record returns the current record.
func (r *Reconciler) Record() models.VesselRecord {
	return r.rec
}

// Provenance returns a copy of the field-to-source map.
func (r *Reconciler) Provenance() Provenance {
	out := make(Provenance, len(r.prov))
	for f, s := range r.prov {
		out[f] = s
	}
	return out
}

// CoordinatesAuthoritative reports whether both coordinates came from
// captured network traffic.
func (r *Reconciler) CoordinatesAuthoritative() bool {
	return r.prov[Lat] == SourceNetwork && r.prov[Lon] == SourceNetwork
}

// Reconcile merges every batch into base in Priority order, regardless of
// the order the batches were produced in.
func Reconcile(base models.VesselRecord, batches map[Source][]Proposal) (models.VesselRecord, Provenance) {
	sources := make([]Source, 0, len(batches))
	for s := range batches {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	r := NewReconciler(base)
	for _, s := range Ordered(sources) {
		r.Apply(s, batches[s])
	}
	return r.Record(), r.Provenance()
}
