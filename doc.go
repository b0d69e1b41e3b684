// Package fabmatch recommends laboratory fabrication equipment for natural
// language requests.
//
// A Service combines semantic and keyword retrieval over a badger-backed
// equipment catalogue, checks the wafer size, temperature and material
// conditions extracted from the request, applies institution policy and asks
// a language model to explain the final selection. Conversations are kept per
// session so that follow-up questions such as "그럼 8인치는?" refine the
// previous request.
//
//	cfg, err := fabmatch.LoadConfig("fabmatch.toml")
//	svc, err := fabmatch.NewService(cfg)
//	defer svc.Close()
//	resp, err := svc.Ask(ctx, recommend.Request{Query: "6인치 Si 웨이퍼용 RTA 장비"})
package fabmatch
