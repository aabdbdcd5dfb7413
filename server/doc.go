// Package server exposes a goCaptcha.Engine over HTTP/JSON.
//
// Routes:
//
//	POST /captcha         {nonce}                      -> {nonce, captcha, validation} | {valid:false}
//	POST /verify/captcha  {nonce, answer, validation}  -> {valid:true, jwt} | {valid:false}
//	POST /captcha/audio   {validation}                 -> {audio} | {error}
//	POST /verify/jwt      {token, nonce}               -> {valid} | 403
//	GET  /, /status                                    -> OK
//	GET  /metrics                                      -> Prometheus text (when enabled)
//
// Every engine error is folded into one of these shapes; handlers never
// return a 5xx for a rejected challenge or credential.
package server
