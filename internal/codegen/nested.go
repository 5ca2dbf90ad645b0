package codegen

import (
	"context"

	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
	"github.com/jfowler-cloud/scaffold-ai/internal/splitter"
)

const mainStackTemplate = `import * as cdk from 'aws-cdk-lib';
import { Construct } from 'constructs';
[[- range .]]
import { [[.Class]] } from './[[.File]]';
[[- end]]

export class MainStack extends cdk.Stack {
  constructor(scope: Construct, id: string, props?: cdk.StackProps) {
    super(scope, id, props);
[[range .]]
    const [[.Var]] = new [[.Class]](this, '[[.Class]]');
[[- end]]
  }
}
`

var mainStack = parse("main-stack", mainStackTemplate)

type nestedStack struct {
	Class string
	File  string
	Var   string
	Layer splitter.Layer
}

// NestedCDK renders one main stack plus a NestedStack per non-empty layer.
type NestedCDK struct{}

func (NestedCDK) Name() string { return DialectCDKNested }

func (NestedCDK) Render(_ context.Context, g *graph.Graph) ([]File, error) {
	if g == nil {
		g = graph.New()
	}

	var stacks []nestedStack
	for _, l := range splitter.SplitByLayer(g.Nodes, g.Edges) {
		stacks = append(stacks, nestedStack{
			Class: pascal(l.Name) + "Stack",
			File:  l.Name + "-stack",
			Var:   camel(l.Name) + "Stack",
			Layer: l,
		})
	}

	main, err := execute(mainStack, stacks)
	if err != nil {
		return nil, err
	}
	files := []File{{Path: infraDir + "/lib/main-stack.ts", Content: main}}

	for _, s := range stacks {
		// edges crossing into another layer are copied here but only wired
		// when both ends render in this stack
		content, err := renderCDKStack(cdkStackData{
			Class: s.Class,
			Base:  "cdk.NestedStack",
			Props: "cdk.NestedStackProps",
		}, s.Layer.Nodes, s.Layer.Edges)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: infraDir + "/lib/" + s.File + ".ts", Content: content})
	}
	return files, nil
}
