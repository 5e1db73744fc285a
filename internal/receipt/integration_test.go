package receipt_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"go.etcd.io/bbolt"

	"github.com/zombor/receipt-interpreter/internal/category"
	"github.com/zombor/receipt-interpreter/internal/engine"
	"github.com/zombor/receipt-interpreter/internal/receipt"
	"github.com/zombor/receipt-interpreter/internal/scanning"
)

// countingScanner stands in for the remote vision service
type countingScanner struct {
	calls      int
	extraction *scanning.Extraction
}

func (c *countingScanner) Scan(ctx context.Context, pages []scanning.Page) (*scanning.Extraction, error) {
	c.calls++
	return c.extraction, nil
}

func (c *countingScanner) Close() error {
	return nil
}

var _ = Describe("Integration", func() {
	var (
		bolt     *bbolt.DB
		learned  *category.BoltStore
		scanner  *countingScanner
		ghServer *ghttp.Server
	)

	post := func(text string, withFile bool) *receipt.Receipt {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		Expect(writer.WriteField("text", text)).To(Succeed())
		if withFile {
			part, err := writer.CreateFormFile("file", "receipt.jpg")
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte("fake jpeg"))
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/receipts", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var created receipt.Receipt
		Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
		return &created
	}

	confirm := func(id, name string) {
		resp, err := http.Post(ghServer.URL()+"/api/receipts/"+id+"/category", "application/json",
			bytes.NewBufferString(`{"category":"`+name+`"}`))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	}

	listKeywords := func() []category.LearnedKeyword {
		resp, err := http.Get(ghServer.URL() + "/api/keywords")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		var entries []category.LearnedKeyword
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, &entries)).To(Succeed())
		return entries
	}

	BeforeEach(func() {
		tempDir := GinkgoT().TempDir()

		var err error
		bolt, err = receipt.OpenBolt(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		db, err := receipt.NewBoltDB(bolt)
		Expect(err).NotTo(HaveOccurred())
		learned, err = category.NewBoltStore(bolt)
		Expect(err).NotTo(HaveOccurred())
		store, err := receipt.NewLocalStorage(filepath.Join(tempDir, "receipts"))
		Expect(err).NotTo(HaveOccurred())

		scanner = &countingScanner{extraction: &scanning.Extraction{}}
		matcher := category.NewMatcher(category.DefaultKeywordStore(), category.DefaultMatcherConfig())
		eng := engine.New(matcher, learned, scanner, time.Second)
		learner := category.NewLearner(learned, category.DefaultLearnerConfig())

		service := receipt.NewService(db, eng, learner, learned, store)
		server := receipt.NewServer(service, receipt.BasicAuth{})

		ghServer = ghttp.NewServer()
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
			ghServer.RouteToHandler(method, regexp.MustCompile(`^/api/`), server.ServeHTTP)
		}
	})

	AfterEach(func() {
		ghServer.Close()
		bolt.Close()
	})

	It("learns from confirmations until the remote is no longer needed", func() {
		const text = "BOTTEGA DEL MARE\nPANIFICIO\nTOTALE 12,00"

		first := post(text, true)
		Expect(scanner.calls).To(Equal(1))
		Expect(first.Category).To(Equal(category.Food))
		Expect(*first.Amount).To(Equal(int64(1200)))
		Expect(first.Merchant).To(Equal("Bottega Del Mare"))
		Expect(first.Files).To(HaveLen(1))

		for i := 0; i < 3; i++ {
			confirm(first.ID, "Food")
		}

		entries := listKeywords()
		Expect(entries).To(HaveLen(2))
		for _, e := range entries {
			Expect(e.Category).To(Equal(category.Food))
			Expect(e.UsageCount).To(Equal(3))
		}

		second := post(text, true)
		Expect(scanner.calls).To(Equal(1))
		Expect(second.Source).To(Equal(engine.SourceLocal))
		Expect(second.Confidence).To(Equal(engine.ConfidenceHigh))
	})

	It("merges the remote answer when the local match is weak", func() {
		scanner.extraction = &scanning.Extraction{Category: category.Supermarket, Merchant: "Lidl Italia"}

		created := post("LIDL\nTOTALE 23,40", true)
		Expect(scanner.calls).To(Equal(1))
		Expect(created.Source).To(Equal(engine.SourceMerged))
		Expect(created.Merchant).To(Equal("Lidl Italia"))
		Expect(*created.Amount).To(Equal(int64(2340)))

		resp, err := http.Get(ghServer.URL() + "/api/receipts/" + created.ID + "/file")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("fake jpeg"))
	})

	It("forgets learned keywords on reset", func() {
		created := post("ESSO\nTOTALE 60,00", false)
		confirm(created.ID, "Fuel")
		Expect(listKeywords()).To(HaveLen(1))

		req, err := http.NewRequest(http.MethodDelete, ghServer.URL()+"/api/keywords", nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		Expect(listKeywords()).To(BeEmpty())
	})
})
