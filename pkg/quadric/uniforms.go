package quadric

import (
	"fmt"

	"github.com/taigrr/quadrics/pkg/math3d"
)

// UniformSink receives named values for a renderer. Names follow the
// "array[index].field" convention of shader uniform blocks.
type UniformSink interface {
	SetFloat(name string, v float64)
	SetVec3(name string, v math3d.Vec3)
	SetVec4(name string, v math3d.Vec4)
	SetMat4(name string, m math3d.Mat4)
}

// Uniforms is a UniformSink that records every value in a flat map.
type Uniforms map[string]any

func (u Uniforms) SetFloat(name string, v float64)    { u[name] = v }
func (u Uniforms) SetVec3(name string, v math3d.Vec3) { u[name] = v }
func (u Uniforms) SetVec4(name string, v math3d.Vec4) { u[name] = v }
func (u Uniforms) SetMat4(name string, m math3d.Mat4) { u[name] = m }

// QuadricPrefix returns the uniform name prefix of the i-th primitive.
func QuadricPrefix(i int) string {
	return fmt.Sprintf("clippedQuadrics[%d]", i)
}

// LightPrefix returns the uniform name prefix of the i-th light.
func LightPrefix(i int) string {
	return fmt.Sprintf("lights[%d]", i)
}

// Export writes the primitive's fields to sink under slot i.
func (q *Quadric) Export(i int, sink UniformSink) {
	p := QuadricPrefix(i)
	sink.SetMat4(p+".surface", q.surface)
	sink.SetMat4(p+".clipper", q.clipper)
	sink.SetMat4(p+".otherClipper", q.otherClipper)
	sink.SetVec3(p+".materialColor", q.material.Color)
	sink.SetVec3(p+".specularColor", q.material.Specular)
	sink.SetVec3(p+".reflectance", q.material.Reflectance)
	sink.SetFloat(p+".procMix", q.material.ProcMix)
	sink.SetFloat(p+".checker", q.material.Checker)
	sink.SetFloat(p+".wooden", q.material.Wooden)
}

// Export writes the light's fields to sink under slot i.
func (l Light) Export(i int, sink UniformSink) {
	p := LightPrefix(i)
	sink.SetVec4(p+".position", l.Position)
	sink.SetVec3(p+".powerDensity", l.PowerDensity)
}
