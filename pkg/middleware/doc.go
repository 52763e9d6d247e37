// Package middleware は各サービスのGinルーターに組み込む共通ミドルウェアを提供する。
//
// JWT認証トークンの検証とサービス間通信用トークンの発行、
// 管理ダッシュボード向けのCORS設定、パニックリカバリを含む。
// 全サービスが同じJWT_SECRETを共有することで相互のAPIを呼び出せる。
package middleware
