package db

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/content-pipeline/internal/types"
)

// clientDocuments holds the JSON-encoded nested sections of a client profile.
type clientDocuments struct {
	ServiceOffering    []byte
	ICPProfile         []byte
	ContentPreferences []byte
	Constraints        []byte
	VoiceExamples      []byte
	ProofAssets        []byte
}

func encodeClientDocuments(p *types.ClientProfile) (*clientDocuments, error) {
	var docs clientDocuments
	fields := []struct {
		name string
		dst  *[]byte
		val  any
	}{
		{"service_offering", &docs.ServiceOffering, p.ServiceOffering},
		{"icp_profile", &docs.ICPProfile, p.ICPProfile},
		{"content_preferences", &docs.ContentPreferences, p.ContentPreferences},
		{"constraints", &docs.Constraints, p.Constraints},
		{"voice_examples", &docs.VoiceExamples, nonNilSlice(p.VoiceExamples)},
		{"proof_assets", &docs.ProofAssets, nonNilSlice(p.ProofAssets)},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.val)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", f.name, err)
		}
		*f.dst = b
	}
	return &docs, nil
}

func (d *clientDocuments) decodeInto(p *types.ClientProfile) error {
	fields := []struct {
		name string
		src  []byte
		dst  any
	}{
		{"service_offering", d.ServiceOffering, &p.ServiceOffering},
		{"icp_profile", d.ICPProfile, &p.ICPProfile},
		{"content_preferences", d.ContentPreferences, &p.ContentPreferences},
		{"constraints", d.Constraints, &p.Constraints},
		{"voice_examples", d.VoiceExamples, &p.VoiceExamples},
		{"proof_assets", d.ProofAssets, &p.ProofAssets},
	}
	for _, f := range fields {
		if len(f.src) == 0 {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", f.name, err)
		}
	}
	if p.VoiceExamples == nil {
		p.VoiceExamples = []types.VoiceExample{}
	}
	if p.ProofAssets == nil {
		p.ProofAssets = []types.ProofAsset{}
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func marshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalMap(b []byte) map[string]any {
	if len(b) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}
