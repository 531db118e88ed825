package graph

import (
	"fmt"

	apperrors "github.com/busway/busway/internal/errors"
	"github.com/busway/busway/internal/topology"
)

// Build assembles the dependency graph over the expanded resource specs.
// Edges: service enablement precedes the bus and every trigger; the bus
// precedes the google-api source and every pipeline; each enrollment
// follows exactly its own pipeline. The pointwise pipeline-to-enrollment
// edge keeps one pipeline's failure from blocking unrelated pairs.
//
// Vertex insertion order follows the spec slice, so the expansion's
// lexical entry order is the traversal tie-break.
func Build(specs []*topology.ResourceSpec) (*DirectedAcyclicGraph[string], error) {
	dag := NewDirectedAcyclicGraph[string]()

	var apisNode, busNode string
	pipelineNodes := make(map[string]string)

	for i, spec := range specs {
		if err := dag.AddVertex(spec.NodeID(), i); err != nil {
			return nil, fmt.Errorf("adding %s to graph: %w", spec.NodeID(), err)
		}
		switch spec.Kind {
		case topology.KindAPIs:
			apisNode = spec.NodeID()
		case topology.KindMessageBus:
			busNode = spec.NodeID()
		case topology.KindPipeline:
			pipelineNodes[spec.ID] = spec.NodeID()
		}
	}

	for _, spec := range specs {
		var deps []string

		switch spec.Kind {
		case topology.KindMessageBus, topology.KindTrigger:
			if apisNode != "" {
				deps = []string{apisNode}
			}
		case topology.KindGoogleAPISource, topology.KindPipeline:
			if busNode != "" {
				deps = []string{busNode}
			}
		case topology.KindEnrollment:
			pipelineNode, ok := pipelineNodes[spec.Enrollment.PipelineID]
			if !ok {
				return nil, &apperrors.ReferentialError{
					Entry:     spec.EntryKey,
					Reference: string(topology.KindPipeline) + "/" + spec.Enrollment.PipelineID,
				}
			}
			deps = []string{pipelineNode}
		}

		if len(deps) == 0 {
			continue
		}
		if err := dag.AddDependencies(spec.NodeID(), deps); err != nil {
			return nil, fmt.Errorf("wiring dependencies of %s: %w", spec.NodeID(), err)
		}
	}

	return dag, nil
}
