/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package constraint models the acceptance tree a relying party declares over
// its verification requests and evaluates returned credentials against it.
package constraint

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/proofpass/proofpass-go/pkg/doc/request"
)

// Node is one node of the acceptance tree. It is a tagged union: exactly one
// of Credential, Any or All may be set. Credential is a leaf matching one
// credential type; Any is satisfied by at least one child, ordered by
// priority; All requires every child.
type Node struct {
	Credential request.CredentialType `json:"credential_type,omitempty"`
	Any        []*Node                `json:"any,omitempty"`
	All        []*Node                `json:"all,omitempty"`
}

// Leaf returns a leaf node accepting the given credential type.
func Leaf(credentialType request.CredentialType) *Node {
	return &Node{Credential: credentialType}
}

// AnyOf returns a node satisfied by at least one of the children. Child order
// is a priority, not just a set: the first satisfiable child wins selection.
func AnyOf(children ...*Node) *Node {
	return &Node{Any: children}
}

// AllOf returns a node satisfied only if every child is satisfied.
func AllOf(children ...*Node) *Node {
	return &Node{All: children}
}

// Build derives the acceptance tree for the given requests. When no explicit
// tree is supplied the default is an Any node over the submitted requests in
// submission order. The returned tree is validated against the requests.
func Build(requests []*request.Request, explicit *Node) (*Node, error) {
	if err := request.ValidateAll(requests); err != nil {
		return nil, err
	}

	tree := explicit
	if tree == nil {
		leaves := make([]*Node, 0, len(requests))
		for _, r := range requests {
			leaves = append(leaves, Leaf(r.CredentialType))
		}

		tree = AnyOf(leaves...)
	}

	if err := tree.Validate(request.CredentialsOf(requests)); err != nil {
		return nil, err
	}

	return tree, nil
}

// Validate checks the structural invariants of the tree: every node carries
// exactly one variant, composite nodes are non-empty and every leaf references
// one of the submitted credential types.
func (n *Node) Validate(submitted []request.CredentialType) error {
	if n == nil {
		return errors.New("constraint node is nil")
	}

	variants := 0

	if n.Credential != "" {
		variants++
	}

	if n.Any != nil {
		variants++
	}

	if n.All != nil {
		variants++
	}

	if variants != 1 {
		return fmt.Errorf("constraint node must carry exactly one of credential_type, any or all, got %d", variants)
	}

	switch {
	case n.Credential != "":
		if !n.Credential.Valid() {
			return fmt.Errorf("unknown credential type %q in constraint leaf", n.Credential)
		}

		if !slices.Contains(submitted, n.Credential) {
			return fmt.Errorf("constraint leaf %q does not match any submitted request", n.Credential)
		}
	case n.Any != nil:
		if len(n.Any) == 0 {
			return errors.New("any constraint must have at least one child")
		}

		for _, child := range n.Any {
			if err := child.Validate(submitted); err != nil {
				return err
			}
		}
	default:
		if len(n.All) == 0 {
			return errors.New("all constraint must have at least one child")
		}

		for _, child := range n.All {
			if err := child.Validate(submitted); err != nil {
				return err
			}
		}
	}

	return nil
}

// Evaluate reports whether the returned credential satisfies the tree. The
// current protocol returns a single credential per attempt, so an All node
// over more than one distinct leaf cannot be satisfied; that shape is kept
// evaluable rather than rejected, reserved for a future multi-credential
// response.
func (n *Node) Evaluate(credential request.CredentialType) bool {
	if n == nil {
		return false
	}

	switch {
	case n.Credential != "":
		return n.Credential == credential
	case n.Any != nil:
		for _, child := range n.Any {
			if child.Evaluate(credential) {
				return true
			}
		}

		return false
	case n.All != nil:
		for _, child := range n.All {
			if !child.Evaluate(credential) {
				return false
			}
		}

		return len(n.All) > 0
	default:
		return false
	}
}

// Choose picks the credential the tree prefers among the available ones.
// Children are tried in declaration order (priority order); among equally
// placed alternatives the stronger credential type wins. The second return is
// false when nothing available satisfies the tree.
func (n *Node) Choose(available []request.CredentialType) (request.CredentialType, bool) {
	if n == nil {
		return "", false
	}

	switch {
	case n.Credential != "":
		if slices.Contains(available, n.Credential) {
			return n.Credential, true
		}

		return "", false
	case n.Any != nil:
		for _, child := range n.Any {
			if chosen, ok := child.Choose(available); ok {
				return chosen, true
			}
		}

		return "", false
	case n.All != nil:
		// a single returned credential must satisfy every child, so candidates
		// are tried whole-node, strongest credential first
		candidates := slices.Clone(available)
		slices.SortStableFunc(candidates, func(a, b request.CredentialType) int {
			return a.Rank() - b.Rank()
		})

		for _, candidate := range candidates {
			if n.Evaluate(candidate) {
				return candidate, true
			}
		}

		return "", false
	default:
		return "", false
	}
}

// Leaves lists the distinct credential types referenced by the tree in
// first-seen order.
func (n *Node) Leaves() []request.CredentialType {
	var leaves []request.CredentialType

	n.collectLeaves(&leaves)

	return leaves
}

func (n *Node) collectLeaves(acc *[]request.CredentialType) {
	if n == nil {
		return
	}

	if n.Credential != "" {
		if !slices.Contains(*acc, n.Credential) {
			*acc = append(*acc, n.Credential)
		}

		return
	}

	for _, child := range n.Any {
		child.collectLeaves(acc)
	}

	for _, child := range n.All {
		child.collectLeaves(acc)
	}
}
