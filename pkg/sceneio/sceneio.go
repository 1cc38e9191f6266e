// Package sceneio reads and writes quadric scenes as glTF 2.0 documents.
//
// Every primitive is a node whose matrix is its surface placement and whose
// extras carry the shape, the material and, when the clippers were placed
// separately, the clip placement. Lights are nodes with light extras. The
// camera is a regular glTF perspective camera node.
package sceneio

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
	"github.com/taigrr/quadrics/pkg/math3d"
	"github.com/taigrr/quadrics/pkg/quadric"
	"github.com/taigrr/quadrics/pkg/scene"
)

// Generator is written to the asset block of exported documents.
const Generator = "quadrics"

// ErrNoScene is returned for documents without a scene to load.
var ErrNoScene = errors.New("sceneio: document has no scene")

// ErrSharedNode is returned when a node is reached twice while walking the
// node tree, either from two parents or through a cycle.
var ErrSharedNode = errors.New("sceneio: node has more than one parent")

// NodeError reports a node that cannot be turned into a primitive or light.
type NodeError struct {
	Index int
	Name  string
	Err   error
}

func (e *NodeError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("sceneio: node %d (%s): %v", e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("sceneio: node %d: %v", e.Index, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// QuadricNode is one decoded primitive.
type QuadricNode struct {
	Node      int // index in the document
	Name      string
	Shape     quadric.Shape
	Material  quadric.Material
	Placement math3d.Mat4
	// ClipPlacement is nil when the clippers follow the surface.
	ClipPlacement *math3d.Mat4
}

// Description is a validated scene file, ready to be built into a Scene.
type Description struct {
	Name     string
	Quadrics []QuadricNode
	Lights   []quadric.Light
	Camera   *scene.Pose // nil when the document has no camera
}

// extras is the JSON stored in a node's extras.
type extras struct {
	Quadric *quadricExtras `json:"quadric,omitempty"`
	Light   *lightExtras   `json:"light,omitempty"`
}

type quadricExtras struct {
	Shape       string       `json:"shape"`
	Color       [3]float64   `json:"color"`
	Specular    [3]float64   `json:"specular"`
	Reflectance [3]float64   `json:"reflectance"`
	ProcMix     float64      `json:"procMix,omitempty"`
	Checker     float64      `json:"checker,omitempty"`
	Wooden      float64      `json:"wooden,omitempty"`
	ClipMatrix  *[16]float64 `json:"clipMatrix,omitempty"`
}

type lightExtras struct {
	Kind     string     `json:"kind"` // "point" or "directional"
	Position [3]float64 `json:"position"`
	Power    [3]float64 `json:"power"`
}

const (
	kindPoint       = "point"
	kindDirectional = "directional"
)

// Export describes s as a glTF document.
func Export(s *scene.Scene) *gltf.Document {
	doc := &gltf.Document{
		Asset: gltf.Asset{Version: "2.0", Generator: Generator},
	}
	root := &gltf.Scene{Name: "quadrics"}

	addNode := func(n *gltf.Node) {
		root.Nodes = append(root.Nodes, len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, n)
	}

	for i, q := range s.Quadrics() {
		m := q.Material()
		qx := &quadricExtras{
			Shape:       q.Shape().String(),
			Color:       m.Color.Array(),
			Specular:    m.Specular.Array(),
			Reflectance: m.Reflectance.Array(),
			ProcMix:     m.ProcMix,
			Checker:     m.Checker,
			Wooden:      m.Wooden,
		}
		if clip := q.ClipPlacement(); clip != q.SurfacePlacement() {
			c := [16]float64(clip)
			qx.ClipMatrix = &c
		}
		addNode(&gltf.Node{
			Name:   fmt.Sprintf("%s.%d", q.Shape(), i),
			Matrix: [16]float64(q.SurfacePlacement()),
			Extras: extras{Quadric: qx},
		})
	}

	for i, l := range s.Lights() {
		lx := &lightExtras{
			Kind:     kindPoint,
			Position: l.Position.Vec3().Array(),
			Power:    l.PowerDensity.Array(),
		}
		if l.Directional() {
			lx.Kind = kindDirectional
		}
		addNode(&gltf.Node{
			Name:   fmt.Sprintf("light.%d", i),
			Matrix: gltf.DefaultMatrix,
			Extras: extras{Light: lx},
		})
	}

	if cam := s.Camera(); cam != nil {
		p := cam.Pose()
		aspect := p.AspectRatio
		near, far := p.Clip()
		doc.Cameras = append(doc.Cameras, &gltf.Camera{
			Name: "camera",
			Perspective: &gltf.Perspective{
				AspectRatio: &aspect,
				Yfov:        p.FOV,
				Znear:       near,
				Zfar:        &far,
			},
		})
		addNode(&gltf.Node{
			Name:   "camera",
			Camera: gltf.Index(len(doc.Cameras) - 1),
			Matrix: [16]float64(poseMatrix(p)),
		})
	}

	doc.Scenes = []*gltf.Scene{root}
	doc.Scene = gltf.Index(0)
	return doc
}

// Save writes s to path as a glTF JSON document.
func Save(s *scene.Scene, path string) error {
	if err := gltf.Save(Export(s), path); err != nil {
		return fmt.Errorf("save gltf: %w", err)
	}
	return nil
}

// Load reads and validates the glTF document at path.
func Load(path string) (*Description, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return Decode(doc)
}

// Decode validates every node of the document's default scene and their
// children. A child's transform is composed with its parent's. Nodes that are
// neither primitives, lights nor cameras are skipped.
func Decode(doc *gltf.Document) (*Description, error) {
	roots, name, err := sceneNodes(doc)
	if err != nil {
		return nil, err
	}

	d := &Description{Name: name}
	seen := make(map[int]bool)
	for _, idx := range roots {
		if err := d.walk(doc, idx, math3d.Identity(), seen); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Description) walk(doc *gltf.Document, idx int, parent math3d.Mat4, seen map[int]bool) error {
	if idx < 0 || idx >= len(doc.Nodes) {
		return &NodeError{Index: idx, Err: errors.New("index out of range")}
	}
	n := doc.Nodes[idx]
	if seen[idx] {
		return &NodeError{Index: idx, Name: n.Name, Err: ErrSharedNode}
	}
	seen[idx] = true

	world := parent.Mul(nodeMatrix(n))
	if err := d.decodeNode(doc, idx, n, parent, world); err != nil {
		return &NodeError{Index: idx, Name: n.Name, Err: err}
	}
	for _, c := range n.Children {
		if err := d.walk(doc, c, world, seen); err != nil {
			return err
		}
	}
	return nil
}

// sceneNodes returns the root nodes to decode. Without scenes every node that
// is nobody's child is a root.
func sceneNodes(doc *gltf.Document) ([]int, string, error) {
	if len(doc.Scenes) == 0 {
		if len(doc.Nodes) == 0 {
			return nil, "", ErrNoScene
		}
		child := make(map[int]bool)
		for _, n := range doc.Nodes {
			for _, c := range n.Children {
				child[c] = true
			}
		}
		var roots []int
		for i := range doc.Nodes {
			if !child[i] {
				roots = append(roots, i)
			}
		}
		return roots, "", nil
	}
	i := 0
	if doc.Scene != nil {
		i = *doc.Scene
	}
	if i < 0 || i >= len(doc.Scenes) {
		return nil, "", fmt.Errorf("%w: scene index %d", ErrNoScene, i)
	}
	return doc.Scenes[i].Nodes, doc.Scenes[i].Name, nil
}

// decodeNode adds n, whose world transform is placement, to d. Clip
// placements in the extras are relative to the parent.
func (d *Description) decodeNode(doc *gltf.Document, idx int, n *gltf.Node, parent, placement math3d.Mat4) error {
	if n.Camera != nil {
		pose, err := decodeCamera(doc, *n.Camera, placement)
		if err != nil {
			return err
		}
		d.Camera = &pose
		return nil
	}

	var x extras
	if n.Extras != nil {
		raw, err := json.Marshal(n.Extras)
		if err != nil {
			return fmt.Errorf("encode extras: %w", err)
		}
		if err := json.Unmarshal(raw, &x); err != nil {
			return fmt.Errorf("decode extras: %w", err)
		}
	}

	switch {
	case x.Quadric != nil:
		q, err := decodeQuadric(n.Name, x.Quadric, parent, placement)
		if err != nil {
			return err
		}
		q.Node = idx
		d.Quadrics = append(d.Quadrics, q)
	case x.Light != nil:
		l, err := decodeLight(x.Light, placement)
		if err != nil {
			return err
		}
		d.Lights = append(d.Lights, l)
	}
	return nil
}

func decodeQuadric(name string, x *quadricExtras, parent, placement math3d.Mat4) (QuadricNode, error) {
	shape, err := quadric.ParseShape(x.Shape)
	if err != nil {
		return QuadricNode{}, err
	}
	if _, err := placement.Inverse(); err != nil {
		return QuadricNode{}, fmt.Errorf("placement: %w", err)
	}
	q := QuadricNode{
		Name:      name,
		Shape:     shape,
		Placement: placement,
		Material: quadric.Material{
			Color:       vec3(x.Color),
			Specular:    vec3(x.Specular),
			Reflectance: vec3(x.Reflectance),
			ProcMix:     x.ProcMix,
			Checker:     x.Checker,
			Wooden:      x.Wooden,
		},
	}
	if x.ClipMatrix != nil {
		clip := parent.Mul(math3d.Mat4(*x.ClipMatrix))
		if _, err := clip.Inverse(); err != nil {
			return QuadricNode{}, fmt.Errorf("clip placement: %w", err)
		}
		q.ClipPlacement = &clip
	}
	return q, nil
}

// decodeLight reads a light whose position or direction is given in the
// frame of placement.
func decodeLight(x *lightExtras, placement math3d.Mat4) (quadric.Light, error) {
	switch x.Kind {
	case kindPoint:
		return quadric.NewPointLight(placement.MulVec3(vec3(x.Position)), vec3(x.Power)), nil
	case kindDirectional:
		dir := placement.MulVec3Dir(vec3(x.Position))
		if dir.Len() == 0 {
			return quadric.Light{}, errors.New("directional light without direction")
		}
		return quadric.NewDirectionalLight(dir, vec3(x.Power)), nil
	}
	return quadric.Light{}, fmt.Errorf("unknown light kind %q", x.Kind)
}

func decodeCamera(doc *gltf.Document, idx int, m math3d.Mat4) (scene.Pose, error) {
	if idx < 0 || idx >= len(doc.Cameras) {
		return scene.Pose{}, fmt.Errorf("camera index %d out of range", idx)
	}
	c := doc.Cameras[idx]
	if c.Perspective == nil {
		return scene.Pose{}, errors.New("only perspective cameras are supported")
	}
	p := scene.Pose{
		Position:    m.Translation(),
		Right:       m.MulVec3Dir(math3d.V3(1, 0, 0)).Normalize(),
		Up:          m.MulVec3Dir(math3d.V3(0, 1, 0)).Normalize(),
		Forward:     m.MulVec3Dir(math3d.V3(0, 0, -1)).Normalize(),
		FOV:         c.Perspective.Yfov,
		AspectRatio: 1,
	}
	if ar := c.Perspective.AspectRatio; ar != nil && *ar > 0 {
		p.AspectRatio = *ar
	}
	if c.Perspective.Znear > 0 {
		p.Near = c.Perspective.Znear
	}
	if zf := c.Perspective.Zfar; zf != nil && *zf > p.Near {
		p.Far = *zf
	}
	return p, nil
}

// Build adds the described primitives and lights to s. The whole description
// is checked against the scene's limits and every primitive is placed before
// s is touched, so a failing build leaves s unchanged. Build is a scene.Builder, so the scene can Reset from it.
func (d *Description) Build(s *scene.Scene) error {
	lim := s.Limits()
	if len(d.Quadrics) > lim.Quadrics {
		return &scene.CapacityError{Kind: "quadric", Count: len(d.Quadrics), Limit: lim.Quadrics}
	}
	if len(d.Lights) > lim.Lights {
		return &scene.CapacityError{Kind: "light", Count: len(d.Lights), Limit: lim.Lights}
	}

	// Place every primitive before touching s.
	qs := make([]*quadric.Quadric, len(d.Quadrics))
	for i, qn := range d.Quadrics {
		q, err := qn.build()
		if err != nil {
			return &NodeError{Index: qn.Node, Name: qn.Name, Err: err}
		}
		qs[i] = q
	}

	for _, l := range d.Lights {
		if err := s.AddLight(l); err != nil {
			return err
		}
	}
	for _, q := range qs {
		if err := s.Append(q); err != nil {
			return err
		}
	}
	s.Logger().Debug("scene description built",
		"name", d.Name, "quadrics", len(d.Quadrics), "lights", len(d.Lights))
	return nil
}

// build returns the placed primitive described by qn.
func (qn QuadricNode) build() (*quadric.Quadric, error) {
	q, err := quadric.New(qn.Shape)
	if err != nil {
		return nil, err
	}
	if err := q.SetMaterial(qn.Material); err != nil {
		return nil, err
	}
	if qn.ClipPlacement == nil {
		if err := q.Transform(qn.Placement); err != nil {
			return nil, err
		}
		return q, nil
	}
	if err := q.TransformSurface(qn.Placement); err != nil {
		return nil, err
	}
	if err := q.TransformClipping(*qn.ClipPlacement); err != nil {
		return nil, err
	}
	return q, nil
}

// nodeMatrix returns the local transform of n, from its matrix or its
// translation, rotation and scale. Zero values mean the glTF defaults.
func nodeMatrix(n *gltf.Node) math3d.Mat4 {
	if m := n.Matrix; m != ([16]float64{}) && m != gltf.DefaultMatrix {
		return math3d.Mat4(m)
	}
	r := n.Rotation
	if r == ([4]float64{}) {
		r = gltf.DefaultRotation
	}
	sc := n.Scale
	if sc == ([3]float64{}) {
		sc = gltf.DefaultScale
	}
	t := n.Translation
	return math3d.Translate(math3d.V3(t[0], t[1], t[2])).
		Mul(quatMatrix(r)).
		Mul(math3d.Scale(math3d.V3(sc[0], sc[1], sc[2])))
}

// quatMatrix converts a unit quaternion (x, y, z, w) to a rotation matrix.
func quatMatrix(q [4]float64) math3d.Mat4 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	if l := math.Sqrt(x*x + y*y + z*z + w*w); l > 0 {
		x, y, z, w = x/l, y/l, z/l, w/l
	}
	return math3d.Mat4FromRows(
		1-2*(y*y+z*z), 2*(x*y-z*w), 2*(x*z+y*w), 0,
		2*(x*y+z*w), 1-2*(x*x+z*z), 2*(y*z-x*w), 0,
		2*(x*z-y*w), 2*(y*z+x*w), 1-2*(x*x+y*y), 0,
		0, 0, 0, 1,
	)
}

// poseMatrix is the camera-to-world matrix of p in glTF convention: the
// camera looks down its local -Z with +Y up.
func poseMatrix(p scene.Pose) math3d.Mat4 {
	r, u, b := p.Right, p.Up, p.Forward.Negate()
	return math3d.Mat4FromRows(
		r.X, u.X, b.X, p.Position.X,
		r.Y, u.Y, b.Y, p.Position.Y,
		r.Z, u.Z, b.Z, p.Position.Z,
		0, 0, 0, 1,
	)
}

func vec3(a [3]float64) math3d.Vec3 {
	return math3d.V3(a[0], a[1], a[2])
}
