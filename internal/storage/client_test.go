package storage_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/storage"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CheckFile", func() {
	DescribeTable("extension allowlist",
		func(bucket storage.Bucket, name string, ok bool) {
			err := storage.CheckFile(bucket, name, 10, 0)
			if ok {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(errors.IsType(err, errors.ErrorTypeValidation)).To(BeTrue())
			}
		},
		Entry("quote pdf", storage.BucketQuotes, "quote.pdf", true),
		Entry("quote docx upper case", storage.BucketQuotes, "QUOTE.DOCX", true),
		Entry("receipt png", storage.BucketReceipts, "r.png", true),
		Entry("receipt doc", storage.BucketReceipts, "r.doc", false),
		Entry("executable", storage.BucketQuotes, "run.exe", false),
		Entry("no extension", storage.BucketQuotes, "README", false),
		Entry("unknown bucket", storage.Bucket("avatars"), "a.png", false),
	)

	It("rejects empty and oversized files", func() {
		Expect(storage.CheckFile(storage.BucketQuotes, "a.pdf", 0, 100)).To(HaveOccurred())
		Expect(storage.CheckFile(storage.BucketQuotes, "a.pdf", 101, 100)).To(HaveOccurred())
		Expect(storage.CheckFile(storage.BucketQuotes, "a.pdf", 100, 100)).To(Succeed())
	})
})

var _ = Describe("Client", func() {
	var (
		server  *httptest.Server
		gotPath string
		gotAuth string
		gotBody string
		status  int
		client  *storage.Client
		logger  *slog.Logger
	)

	BeforeEach(func() {
		status = http.StatusOK
		gotPath, gotAuth, gotBody = "", "", ""
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"ok"}`))
		}))
		client = storage.NewClient(storage.Config{
			BaseURL:    server.URL + "/storage/v1",
			PublicURL:  "https://cdn.example.com/public",
			ServiceKey: "service-key",
		}, logger)
	})

	AfterEach(func() {
		server.Close()
	})

	It("uploads under a generated name and returns the public descriptor", func() {
		desc, err := client.Upload(context.Background(), storage.BucketQuotes, "Quote.PDF", strings.NewReader("pdf-bytes"), 9, "application/pdf")
		Expect(err).NotTo(HaveOccurred())

		Expect(gotPath).To(HavePrefix("/storage/v1/object/quotes/"))
		Expect(gotPath).To(HaveSuffix(".pdf"))
		Expect(gotAuth).To(Equal("Bearer service-key"))
		Expect(gotBody).To(Equal("pdf-bytes"))

		Expect(desc.Size).To(Equal(int64(9)))
		Expect(desc.Name).To(HaveSuffix(".pdf"))
		Expect(desc.URL).To(Equal("https://cdn.example.com/public/quotes/" + desc.Name))
	})

	It("refuses disallowed files without calling the store", func() {
		_, err := client.Upload(context.Background(), storage.BucketReceipts, "r.docx", strings.NewReader("x"), 1, "")
		Expect(err).To(HaveOccurred())
		Expect(gotPath).To(BeEmpty())
	})

	It("maps store errors to store unavailable", func() {
		status = http.StatusInternalServerError
		_, err := client.Upload(context.Background(), storage.BucketReceipts, "r.png", strings.NewReader("x"), 1, "image/png")
		Expect(errors.IsType(err, errors.ErrorTypeStoreUnavailable)).To(BeTrue())
	})
})
