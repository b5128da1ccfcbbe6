package core

import (
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Vertex layout shared by both programs: position, normal, uv.
const (
	attribPosition = 0
	attribNormal   = 1
	attribUV       = 2
)

const depthVertexSource = `
#version 410 core
layout (location = 0) in vec3 aPos;

uniform mat4 lightSpace;
uniform mat4 model;

void main() {
	gl_Position = lightSpace * model * vec4(aPos, 1.0);
}
` + "\x00"

const depthFragmentSource = `
#version 410 core
void main() {}
` + "\x00"

const litVertexSource = `
#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoord;

out vec3 WorldPos;
out vec3 Normal;
out vec2 TexCoord;
out vec4 LightSpacePos;

uniform mat4 model;
uniform mat3 normalMatrix;
uniform mat4 view;
uniform mat4 projection;
uniform mat4 lightSpace;

void main() {
	vec4 world = model * vec4(aPos, 1.0);
	WorldPos = world.xyz;
	Normal = normalMatrix * aNormal;
	TexCoord = aTexCoord;
	LightSpacePos = lightSpace * world;
	gl_Position = projection * view * world;
}
` + "\x00"

// The lit program shades one spot light and one ambient term. Output is
// linear; the sRGB framebuffer encodes it.
const litFragmentSource = `
#version 410 core
in vec3 WorldPos;
in vec3 Normal;
in vec2 TexCoord;
in vec4 LightSpacePos;

out vec4 FragColor;

const float PI = 3.141592653589793;

uniform vec4 baseColor;
uniform float metallic;
uniform float roughness;
uniform bool hasMap;
uniform sampler2D baseMap;

uniform vec3 cameraPos;
uniform vec3 ambient;

uniform bool spotEnabled;
uniform vec3 spotPosition;
uniform vec3 spotDirection;
uniform vec3 spotColor;
uniform float spotDistance;
uniform float spotDecay;
uniform float spotConeCos;
uniform float spotPenumbraCos;

uniform bool receiveShadow;
uniform bool shadowEnabled;
uniform float shadowBias;
uniform sampler2D shadowMap;

float distanceFalloff(float d) {
	float f = 1.0 / max(pow(d, spotDecay), 0.01);
	if (spotDistance > 0.0) {
		float r = d / spotDistance;
		float c = clamp(1.0 - r * r * r * r, 0.0, 1.0);
		f *= c * c;
	}
	return f;
}

float shadowFactor() {
	vec3 coord = LightSpacePos.xyz / LightSpacePos.w;
	coord = coord * 0.5 + 0.5;
	if (coord.z > 1.0 || coord.x < 0.0 || coord.x > 1.0 || coord.y < 0.0 || coord.y > 1.0) {
		return 1.0;
	}
	coord.z += shadowBias;
	vec2 texel = 1.0 / vec2(textureSize(shadowMap, 0));
	float lit = 0.0;
	for (int x = -1; x <= 1; x++) {
		for (int y = -1; y <= 1; y++) {
			float depth = texture(shadowMap, coord.xy + vec2(x, y) * texel).r;
			lit += coord.z <= depth ? 1.0 : 0.0;
		}
	}
	return lit / 9.0;
}

void main() {
	vec4 albedo = baseColor;
	if (hasMap) {
		albedo *= texture(baseMap, TexCoord);
	}

	vec3 n = normalize(Normal);
	if (!gl_FrontFacing) {
		n = -n;
	}
	vec3 diffuse = albedo.rgb * (1.0 - metallic);
	vec3 specular = mix(vec3(0.04), albedo.rgb, metallic);

	vec3 color = ambient * diffuse;

	if (spotEnabled) {
		vec3 toLight = spotPosition - WorldPos;
		float d = length(toLight);
		vec3 l = toLight / d;
		float angleCos = dot(-l, spotDirection);
		float cone = smoothstep(spotConeCos, spotPenumbraCos, angleCos);
		vec3 radiance = spotColor * cone * distanceFalloff(d);

		if (receiveShadow && shadowEnabled) {
			radiance *= shadowFactor();
		}

		float nl = max(dot(n, l), 0.0);
		vec3 v = normalize(cameraPos - WorldPos);
		vec3 h = normalize(l + v);
		float shininess = 2.0 / max(pow(roughness, 4.0), 1e-4) - 2.0;
		float spec = pow(max(dot(n, h), 0.0), shininess) * (shininess + 2.0) / (8.0 * PI);

		color += radiance * nl * (diffuse / PI + specular * spec);
	}

	FragColor = vec4(color, albedo.a);
}
` + "\x00"

// ShaderError carries the driver log of a shader stage that failed to
// compile, or of a program that failed to link.
type ShaderError struct {
	// Stage is "vertex", "fragment" or "link".
	Stage string
	Log   string
}

func (e *ShaderError) Error() string {
	if e.Stage == "link" {
		return "shader program failed to link: " + e.Log
	}
	return "failed to compile " + e.Stage + " shader: " + e.Log
}

// infoLog trims the NUL padding and trailing newlines drivers leave in logs.
func infoLog(raw string) string {
	if i := strings.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

// compileShader compiles vertex and fragment shaders into an OpenGL program.
func compileShader(vertexShaderSource, fragmentShaderSource string) (uint32, error) {
	vertexShader, err := compileStage(gl.VERTEX_SHADER, "vertex", vertexShaderSource)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compileStage(gl.FRAGMENT_SHADER, "fragment", fragmentShaderSource)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragmentShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, &ShaderError{Stage: "link", Log: infoLog(log)}
	}
	return program, nil
}

// compileStage compiles one NUL terminated GLSL source of the given kind.
func compileStage(kind uint32, stage, source string) (uint32, error) {
	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, &ShaderError{Stage: stage, Log: infoLog(log)}
	}
	return shader, nil
}

// uniforms resolves uniform locations of a program by name.
type uniforms struct {
	program uint32
	loc     map[string]int32
}

func newUniforms(program uint32, names ...string) uniforms {
	u := uniforms{program: program, loc: make(map[string]int32, len(names))}
	for _, name := range names {
		u.loc[name] = gl.GetUniformLocation(program, gl.Str(name+"\x00"))
	}
	return u
}

func (u uniforms) get(name string) int32 {
	if l, ok := u.loc[name]; ok {
		return l
	}
	return -1
}
