/*
Package server 管理 webhook 接收服务的 HTTP/HTTPS 生命周期。

Manager 基于 tlsutil.SecureServer 构建 http.Server，Start 在后台
goroutine 中监听，Run 阻塞到 context 结束后在 ShutdownTimeout 内
优雅关闭。配置了证书与私钥时以 TLS 监听。异步错误通过 Errors() 传播。
*/
package server
