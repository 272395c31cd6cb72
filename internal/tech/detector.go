package tech

import (
	"fmt"
	"sort"

	wappalyzer "github.com/projectdiscovery/wappalyzergo"
)

// Detector wraps wappalyzergo for technology detection
type Detector struct {
	wappalyze *wappalyzer.Wappalyze
}

// NewDetector loads the wappalyzer fingerprint database
func NewDetector() (*Detector, error) {
	wappalyze, err := wappalyzer.New()
	if err != nil {
		return nil, fmt.Errorf("loading technology fingerprints: %w", err)
	}
	return &Detector{wappalyze: wappalyze}, nil
}

// Detect identifies technologies from normalized headers and body.
// The result is sorted so identical hops produce identical output.
func (d *Detector) Detect(headers map[string]string, body []byte) []string {
	if d == nil || d.wappalyze == nil {
		return nil
	}

	multi := make(map[string][]string, len(headers))
	for k, v := range headers {
		multi[k] = []string{v}
	}

	fingerprints := d.wappalyze.Fingerprint(multi, body)
	if len(fingerprints) == 0 {
		return nil
	}

	techs := make([]string, 0, len(fingerprints))
	for tech := range fingerprints {
		techs = append(techs, tech)
	}
	sort.Strings(techs)
	return techs
}
