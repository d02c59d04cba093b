package llm

import (
	"os"
	"strings"
)

// AuthStyle 标识 Provider 的认证头风格。
type AuthStyle string

const (
	AuthBearer    AuthStyle = "bearer"         // Authorization: Bearer <key>
	AuthXAPIKey   AuthStyle = "x-api-key"      // Anthropic 风格
	AuthGoogleKey AuthStyle = "x-goog-api-key" // Gemini 风格
)

// ProviderInfo 描述后端服务的静态元数据：认证方式、模型命名空间与能力集。
// 能力集是路由正确性门槛的依据，不是排序偏好。
type ProviderInfo struct {
	Name           string
	CredentialKey  string // 凭据集中的命名密钥，缺失即整个请求期间不可用
	BaseURL        string
	Auth           AuthStyle
	SupportsVision bool
	DefaultModel   string
	Priority       int // 首选不可用时的固定兜底顺序，越小越优先
}

// Credentials 是每请求只读的凭据快照：provider 名 → API key。
// 核心只判断"存在性"，不校验正确性；无效凭据在执行期以认证失败浮现。
type Credentials map[string]string

// Has 返回指定 Provider 是否配置了非空凭据。
func (c Credentials) Has(provider string) bool {
	return strings.TrimSpace(c[provider]) != ""
}

// Availability 是单次请求内的可用性快照（凭据存在性，无网络探测）。
type Availability map[string]bool

// CredentialsFromEnv 按内置目录的命名密钥从环境变量读取凭据快照。
// 只在进程启动时调用一次，快照之后不再变化。
func CredentialsFromEnv() Credentials {
	creds := make(Credentials, len(builtinProviders))
	for _, info := range builtinProviders {
		if v := strings.TrimSpace(os.Getenv(info.CredentialKey)); v != "" {
			creds[info.Name] = v
		}
	}
	return creds
}

// builtinProviders 是内置 Provider 目录。
// Priority 同时是 BestAvailable 的兜底顺序。
var builtinProviders = []ProviderInfo{
	{Name: "openai", CredentialKey: "OPENAI_API_KEY", BaseURL: "https://api.openai.com", Auth: AuthBearer, SupportsVision: true, DefaultModel: "gpt-4o-mini", Priority: 1},
	{Name: "anthropic", CredentialKey: "ANTHROPIC_API_KEY", BaseURL: "https://api.anthropic.com", Auth: AuthXAPIKey, SupportsVision: true, DefaultModel: "claude-sonnet-4-5", Priority: 2},
	{Name: "gemini", CredentialKey: "GEMINI_API_KEY", BaseURL: "https://generativelanguage.googleapis.com", Auth: AuthGoogleKey, SupportsVision: true, DefaultModel: "gemini-3-pro", Priority: 3},
	{Name: "deepseek", CredentialKey: "DEEPSEEK_API_KEY", BaseURL: "https://api.deepseek.com", Auth: AuthBearer, SupportsVision: false, DefaultModel: "deepseek-chat", Priority: 4},
	{Name: "qwen", CredentialKey: "DASHSCOPE_API_KEY", BaseURL: "https://dashscope.aliyuncs.com/compatible-mode", Auth: AuthBearer, SupportsVision: true, DefaultModel: "qwen-plus", Priority: 5},
	{Name: "grok", CredentialKey: "XAI_API_KEY", BaseURL: "https://api.x.ai", Auth: AuthBearer, SupportsVision: true, DefaultModel: "grok-4", Priority: 6},
	{Name: "kimi", CredentialKey: "MOONSHOT_API_KEY", BaseURL: "https://api.moonshot.cn", Auth: AuthBearer, SupportsVision: false, DefaultModel: "kimi-k2", Priority: 7},
	{Name: "glm", CredentialKey: "ZHIPU_API_KEY", BaseURL: "https://open.bigmodel.cn/api/paas", Auth: AuthBearer, SupportsVision: false, DefaultModel: "glm-4.6", Priority: 8},
	{Name: "mistral", CredentialKey: "MISTRAL_API_KEY", BaseURL: "https://api.mistral.ai", Auth: AuthBearer, SupportsVision: false, DefaultModel: "mistral-large-latest", Priority: 9},
}

// modelAliases 规范化常见的模型别名写法。
var modelAliases = map[string]string{
	"gpt4o":          "gpt-4o",
	"gpt4o-mini":     "gpt-4o-mini",
	"claude-sonnet":  "claude-sonnet-4-5",
	"claude-haiku":   "claude-haiku-4-5",
	"gemini-pro":     "gemini-3-pro",
	"gemini-flash":   "gemini-3-flash",
	"deepseek":       "deepseek-chat",
	"deepseek-r1":    "deepseek-reasoner",
	"qwen":           "qwen-plus",
	"kimi":           "kimi-k2",
	"glm4":           "glm-4.6",
	"mistral-large":  "mistral-large-latest",
	"mistral-medium": "mistral-medium-latest",
}

// Registry 是后端服务目录：每个 Provider 的元数据加上注入的凭据快照。
// 实例在进程启动时构造一次，可被并发请求只读共享。
type Registry struct {
	infos map[string]ProviderInfo
	order []string // 按 Priority 升序
	creds Credentials
}

// NewRegistry 用注入的凭据构造目录。凭据在进程内不会中途变化。
func NewRegistry(creds Credentials) *Registry {
	if creds == nil {
		creds = Credentials{}
	}
	r := &Registry{
		infos: make(map[string]ProviderInfo, len(builtinProviders)),
		creds: creds,
	}
	for _, info := range builtinProviders {
		r.infos[info.Name] = info
	}
	// builtinProviders 本身按 Priority 排好
	for _, info := range builtinProviders {
		r.order = append(r.order, info.Name)
	}
	return r
}

// Info 返回指定 Provider 的元数据。
func (r *Registry) Info(name string) (ProviderInfo, bool) {
	info, ok := r.infos[name]
	return info, ok
}

// Names 返回全部 Provider 名称，按兜底优先级排序。
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Credential 返回指定 Provider 的凭据。
func (r *Registry) Credential(name string) string {
	info, ok := r.infos[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(r.creds[info.Name])
}

// Availability 基于凭据存在性计算可用性快照。每请求调用一次，不做网络探测。
func (r *Registry) Availability() Availability {
	snap := make(Availability, len(r.infos))
	for name := range r.infos {
		snap[name] = r.creds.Has(name)
	}
	return snap
}

// IsCompatible 判断 Provider 能否承载请求形态。
// 携带图片的请求对纯文本 Provider 必须返回 false——这是正确性门槛，
// 不兼容的 Provider 在任何情况下都不得进入该请求的降级链。
func (r *Registry) IsCompatible(name string, needVision bool) bool {
	info, ok := r.infos[name]
	if !ok {
		return false
	}
	if needVision && !info.SupportsVision {
		return false
	}
	return true
}

// BestAvailable 返回最优可用且兼容的 Provider。
// preferred 可用时直接返回；否则按固定优先级顺序兜底。找不到返回 ("", false)。
func (r *Registry) BestAvailable(preferred string, snap Availability, needVision bool) (string, bool) {
	if snap[preferred] && r.IsCompatible(preferred, needVision) {
		return preferred, true
	}
	for _, name := range r.order {
		if snap[name] && r.IsCompatible(name, needVision) {
			return name, true
		}
	}
	return "", false
}

// NormalizeModel 通过别名表规范化模型标识；空模型名落到 Provider 默认模型。
func (r *Registry) NormalizeModel(provider, model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		if info, ok := r.infos[provider]; ok {
			return info.DefaultModel
		}
		return ""
	}
	if canonical, ok := modelAliases[strings.ToLower(model)]; ok {
		return canonical
	}
	return model
}
