// Package tlsutil 为访问 KirokuForms API 的 HTTP 客户端提供安全加固的 TLS 设置
// （TLS 1.2+，仅 AEAD 密码套件），以及 Webhook 服务端使用的同一份配置。
package tlsutil
