// Identities for reports raised by the classifier rather than a human reporter.
//
// Synthetic identities share the report-id space with human user identities, so they carry a
// reserved prefix which no human identity may use.
package reportid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const SyntheticPrefix = "auto-flag:"

var ErrInvalidIdentity = errors.New("identity uses the reserved auto-flag prefix")

type Generator struct {
	node *snowflake.Node
}

// NewGenerator returns a generator for the given node; node ids must be unique across running
// instances which share abuse and audit storage.
func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("creating snowflake node: %w", err)
	}
	return &Generator{node: node}, nil
}

// NewSynthetic returns a fresh, time-ordered synthetic report identity.
func (g *Generator) NewSynthetic() string {
	return SyntheticPrefix + g.node.Generate().String()
}

func IsSynthetic(id string) bool {
	return strings.HasPrefix(id, SyntheticPrefix)
}

// ValidateHuman rejects empty identities and those which collide with the synthetic namespace.
func ValidateHuman(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty identity", ErrInvalidIdentity)
	}
	if IsSynthetic(id) {
		return ErrInvalidIdentity
	}
	return nil
}
