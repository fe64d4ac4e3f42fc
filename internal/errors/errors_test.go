package errors

import (
	"errors"
	"net/http"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestErrors(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Errors Suite")
}

var _ = Describe("Structured Errors", func() {
	Describe("AppError", func() {
		Context("basic error creation", func() {
			It("should create error with correct properties", func() {
				err := New(ErrorTypeInvalidInput, "test message")

				Expect(err.Type).To(Equal(ErrorTypeInvalidInput))
				Expect(err.Message).To(Equal("test message"))
				Expect(err.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(err.Details).To(BeEmpty())
				Expect(err.Cause).To(BeNil())
			})

			It("should implement error interface correctly", func() {
				err := New(ErrorTypeInvalidInput, "test message")

				Expect(err.Error()).To(Equal("invalid_input: test message"))
			})

			It("should include details in error string when present", func() {
				err := New(ErrorTypeInvalidInput, "test message").WithDetails("extra info")

				Expect(err.Error()).To(Equal("invalid_input: test message (extra info)"))
			})
		})

		Context("error wrapping", func() {
			It("should wrap underlying error", func() {
				originalErr := errors.New("dataset file missing")
				wrappedErr := Wrap(originalErr, ErrorTypeAdapterUnavailable, "operation failed")

				Expect(wrappedErr.Type).To(Equal(ErrorTypeAdapterUnavailable))
				Expect(wrappedErr.Message).To(Equal("operation failed"))
				Expect(wrappedErr.Cause).To(Equal(originalErr))
				Expect(wrappedErr.Unwrap()).To(Equal(originalErr))
			})

			It("should format wrapped error with arguments", func() {
				originalErr := errors.New("connection refused")
				wrappedErr := Wrapf(originalErr, ErrorTypeRouterUnavailable, "failed to connect to %s:%d", "router.local", 8080)

				Expect(wrappedErr.Message).To(Equal("failed to connect to router.local:8080"))
				Expect(wrappedErr.Cause).To(Equal(originalErr))
			})
		})

		Context("adding details", func() {
			It("should add details to existing error", func() {
				err := New(ErrorTypeExtractorUnavailable, "extractor call failed")
				detailedErr := err.WithDetails("invalid response shape")

				Expect(detailedErr.Details).To(Equal("invalid response shape"))
				Expect(detailedErr).To(BeIdenticalTo(err)) // Should modify in place
			})

			It("should add formatted details", func() {
				err := New(ErrorTypeExtractorUnavailable, "extractor call failed")
				detailedErr := err.WithDetailsf("attempt %d of %d", 3, 3)

				Expect(detailedErr.Details).To(Equal("attempt 3 of 3"))
			})
		})
	})

	Describe("HTTP Status Code Mapping", func() {
		It("should map error types to correct HTTP status codes", func() {
			testCases := []struct {
				errorType  ErrorType
				statusCode int
			}{
				{ErrorTypeNoOrigin, http.StatusBadRequest},
				{ErrorTypeInvalidInput, http.StatusBadRequest},
				{ErrorTypeNoPath, http.StatusNotFound},
				{ErrorTypeTimeout, http.StatusRequestTimeout},
				{ErrorTypeResourceExhausted, http.StatusTooManyRequests},
				{ErrorTypeExtractorUnavailable, http.StatusServiceUnavailable},
				{ErrorTypeRouterUnavailable, http.StatusServiceUnavailable},
				{ErrorTypeAdapterUnavailable, http.StatusInternalServerError},
				{ErrorTypeInternal, http.StatusInternalServerError},
			}

			for _, tc := range testCases {
				err := New(tc.errorType, "test message")
				Expect(err.StatusCode).To(Equal(tc.statusCode))
			}
		})
	})

	Describe("Predefined Error Constructors", func() {
		It("should create a no-origin error", func() {
			err := NewNoOriginError("query had no resolvable origin")

			Expect(err.Type).To(Equal(ErrorTypeNoOrigin))
			Expect(err.Message).To(Equal("query had no resolvable origin"))
		})

		It("should create an adapter-unavailable error", func() {
			originalErr := errors.New("file not found")
			err := NewAdapterUnavailableError("social_media", originalErr)

			Expect(err.Type).To(Equal(ErrorTypeAdapterUnavailable))
			Expect(err.Message).To(ContainSubstring("adapter unavailable: social_media"))
			Expect(err.Cause).To(Equal(originalErr))
		})

		It("should create a no-path error", func() {
			err := NewNoPathError("shelter-12", "hospital-3")

			Expect(err.Type).To(Equal(ErrorTypeNoPath))
			Expect(err.Message).To(Equal("no path found from shelter-12 to hospital-3"))
		})

		It("should create an invalid-input error", func() {
			err := NewInvalidInputError("timestamp", "not RFC3339")

			Expect(err.Type).To(Equal(ErrorTypeInvalidInput))
			Expect(err.Message).To(Equal("timestamp: not RFC3339"))
		})

		It("should create a timeout error", func() {
			err := NewTimeoutError("route computation")

			Expect(err.Type).To(Equal(ErrorTypeTimeout))
			Expect(err.Message).To(Equal("operation timed out: route computation"))
		})
	})

	Describe("Error Type Checking", func() {
		It("should correctly identify error types", func() {
			invalidErr := NewInvalidInputError("field", "reason")
			timeoutErr := NewTimeoutError("op")

			Expect(IsType(invalidErr, ErrorTypeInvalidInput)).To(BeTrue())
			Expect(IsType(invalidErr, ErrorTypeTimeout)).To(BeFalse())
			Expect(IsType(timeoutErr, ErrorTypeTimeout)).To(BeTrue())
		})

		It("should handle non-AppError types", func() {
			regularErr := errors.New("regular error")

			Expect(IsType(regularErr, ErrorTypeInvalidInput)).To(BeFalse())
			Expect(GetType(regularErr)).To(Equal(ErrorTypeInternal))
		})

		It("should get correct status codes", func() {
			invalidErr := NewInvalidInputError("field", "reason")
			regularErr := errors.New("regular error")

			Expect(GetStatusCode(invalidErr)).To(Equal(http.StatusBadRequest))
			Expect(GetStatusCode(regularErr)).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Safe Error Messages", func() {
		It("should return safe messages for different error types", func() {
			testCases := []struct {
				errorType    ErrorType
				expectedSafe string
			}{
				{ErrorTypeNoPath, ErrorMessages.NoPathFound},
				{ErrorTypeExtractorUnavailable, ErrorMessages.ExtractorDegraded},
				{ErrorTypeRouterUnavailable, ErrorMessages.RouterDegraded},
				{ErrorTypeTimeout, ErrorMessages.OperationTimeout},
				{ErrorTypeResourceExhausted, ErrorMessages.QueueExhausted},
				{ErrorTypeAdapterUnavailable, "An internal error occurred"},
			}

			for _, tc := range testCases {
				err := New(tc.errorType, "internal details")
				Expect(SafeErrorMessage(err)).To(Equal(tc.expectedSafe))
			}

			invalidErr := NewInvalidInputError("timestamp", "specific validation message")
			Expect(SafeErrorMessage(invalidErr)).To(Equal("timestamp: specific validation message"))
		})

		It("should return generic message for regular errors", func() {
			regularErr := errors.New("internal panic")
			safeMsg := SafeErrorMessage(regularErr)

			Expect(safeMsg).To(Equal("An unexpected error occurred"))
		})
	})

	Describe("Logging Fields", func() {
		It("should generate structured logging fields", func() {
			originalErr := errors.New("connection failed")
			appErr := Wrapf(originalErr, ErrorTypeAdapterUnavailable, "gather failed").
				WithDetails("source: satellite")

			fields := LogFields(appErr)

			Expect(fields).To(HaveKey("error"))
			Expect(fields).To(HaveKey("error_type"))
			Expect(fields).To(HaveKey("status_code"))
			Expect(fields).To(HaveKey("error_details"))
			Expect(fields).To(HaveKey("underlying_error"))

			Expect(fields["error_type"]).To(Equal("adapter_unavailable"))
			Expect(fields["status_code"]).To(Equal(http.StatusInternalServerError))
			Expect(fields["error_details"]).To(Equal("source: satellite"))
			Expect(fields["underlying_error"]).To(Equal("connection failed"))
		})

		It("should handle simple AppError without details", func() {
			err := NewInvalidInputError("field", "reason")
			fields := LogFields(err)

			Expect(fields).To(HaveKey("error"))
			Expect(fields).To(HaveKey("error_type"))
			Expect(fields).To(HaveKey("status_code"))
			Expect(fields).NotTo(HaveKey("error_details"))
			Expect(fields).NotTo(HaveKey("underlying_error"))
		})

		It("should handle regular errors", func() {
			err := errors.New("regular error")
			fields := LogFields(err)

			Expect(fields).To(HaveKey("error"))
			Expect(fields).NotTo(HaveKey("error_type"))
		})
	})

	Describe("Error Chaining", func() {
		It("should handle empty error list", func() {
			err := Chain()
			Expect(err).To(BeNil())
		})

		It("should handle single error", func() {
			originalErr := errors.New("single error")
			err := Chain(originalErr)

			Expect(err).To(Equal(originalErr))
		})

		It("should filter nil errors", func() {
			err1 := errors.New("error 1")
			err2 := errors.New("error 2")

			err := Chain(err1, nil, err2, nil)

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("error 1"))
			Expect(err.Error()).To(ContainSubstring("error 2"))
		})

		It("should chain multiple errors", func() {
			err1 := errors.New("first error")
			err2 := errors.New("second error")
			err3 := errors.New("third error")

			chainedErr := Chain(err1, err2, err3)

			Expect(chainedErr).To(HaveOccurred())
			errMsg := chainedErr.Error()
			Expect(errMsg).To(ContainSubstring("first error"))
			Expect(errMsg).To(ContainSubstring("second error"))
			Expect(errMsg).To(ContainSubstring("third error"))
			Expect(errMsg).To(ContainSubstring(" -> "))
		})

		It("should return nil when all errors are nil", func() {
			err := Chain(nil, nil, nil)
			Expect(err).To(BeNil())
		})
	})

	Describe("Error Type Constants", func() {
		It("should have all expected error types defined", func() {
			expectedTypes := []ErrorType{
				ErrorTypeNoOrigin,
				ErrorTypeAdapterUnavailable,
				ErrorTypeExtractorUnavailable,
				ErrorTypeRouterUnavailable,
				ErrorTypeNoPath,
				ErrorTypeTimeout,
				ErrorTypeResourceExhausted,
				ErrorTypeInvalidInput,
				ErrorTypeInternal,
			}

			for _, errorType := range expectedTypes {
				Expect(string(errorType)).NotTo(BeEmpty())
			}
		})
	})
})
