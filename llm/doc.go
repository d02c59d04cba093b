/*
包 llm 提供统一的大语言模型接入层：Provider 抽象、降级链执行、
凭据目录与错误分类。

# 概述

本包目标是屏蔽不同模型服务商在接口、鉴权、错误语义和流式协议上的差异，
对上层暴露一致的请求与响应模型。路由决定"试哪些"，本包的执行器决定
"怎么试"：沿降级链严格串行尝试，直到成功或耗尽。

# 核心接口

  - [Provider]：LLM 提供者接口，提供 Completion / Stream / HealthCheck / Name
  - [ProviderFactory]：按名称创建 Provider，llm/factory 提供默认实现
  - [Recorder]：执行遥测接收器,internal/metrics 提供 Prometheus 实现

# 核心类型

  - [ChatRequest] / [ChatResponse]：聊天请求与响应
  - [Message] / [Part]：统一消息模型，多模态内容用片段序列表达
  - [StreamChunk]：流式输出分片
  - [Error]：带错误码、HTTP 状态与失败分类的统一错误
  - [ModelConfig]：链上单个候选的 {provider, model, 参数, 单位成本}
  - [Registry] / [Credentials] / [Availability]：Provider 目录与凭据快照
  - [Executor] / [ExecutionJob] / [ExecutionMetadata]：降级链执行

# 失败分类

细粒度的 [ErrorCode] 通过 [Error.Kind] 折叠为四个失败大类：认证失败、
限流/配额、能力不匹配与未知。执行器对所有类别都前进到下一候选，
分类主要服务于耗尽时的聚合报错与遥测。

# 相关子包

  - llm/routing：请求分类、路由表与降级链构造。
  - llm/providers：各模型服务商适配实现。
  - llm/factory：Provider 工厂与名称映射。
*/
package llm
