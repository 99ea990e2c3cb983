package errors

import (
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

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
				originalErr := errors.New("original error")
				wrappedErr := Wrap(originalErr, ErrorTypeStorage, "operation failed")

				Expect(wrappedErr.Type).To(Equal(ErrorTypeStorage))
				Expect(wrappedErr.Message).To(Equal("operation failed"))
				Expect(wrappedErr.Cause).To(Equal(originalErr))
				Expect(wrappedErr.Unwrap()).To(Equal(originalErr))
			})

			It("should format wrapped error with arguments", func() {
				originalErr := errors.New("connection refused")
				wrappedErr := Wrapf(originalErr, ErrorTypeStorage, "failed to connect to %s:%d", "localhost", 5432)

				Expect(wrappedErr.Message).To(Equal("failed to connect to localhost:5432"))
				Expect(wrappedErr.Cause).To(Equal(originalErr))
			})
		})

		Context("adding details", func() {
			It("should add details to existing error", func() {
				err := New(ErrorTypeInvalidState, "episode already complete")
				detailedErr := err.WithDetails("episode_id: abc-123")

				Expect(detailedErr.Details).To(Equal("episode_id: abc-123"))
				Expect(detailedErr).To(BeIdenticalTo(err)) // Should modify in place
			})

			It("should add formatted details", func() {
				err := New(ErrorTypeInvalidState, "episode already complete")
				detailedErr := err.WithDetailsf("episode_id: %s, attempt %d", "abc-123", 3)

				Expect(detailedErr.Details).To(Equal("episode_id: abc-123, attempt 3"))
			})
		})
	})

	Describe("HTTP Status Code Mapping", func() {
		It("should map error types to correct HTTP status codes", func() {
			testCases := []struct {
				errorType  ErrorType
				statusCode int
			}{
				{ErrorTypeInvalidInput, http.StatusBadRequest},
				{ErrorTypeInvalidState, http.StatusConflict},
				{ErrorTypeNotFound, http.StatusNotFound},
				{ErrorTypeConflict, http.StatusConflict},
				{ErrorTypeCircuitBreakerOpen, http.StatusServiceUnavailable},
				{ErrorTypeStorage, http.StatusInternalServerError},
				{ErrorTypeSerialization, http.StatusUnprocessableEntity},
			}

			for _, tc := range testCases {
				err := New(tc.errorType, "test message")
				Expect(err.StatusCode).To(Equal(tc.statusCode))
			}
		})
	})

	Describe("Predefined Error Constructors", func() {
		It("should create not found error", func() {
			err := NewNotFoundError("episode")

			Expect(err.Type).To(Equal(ErrorTypeNotFound))
			Expect(err.Message).To(Equal("episode not found"))
		})

		It("should create invalid state error", func() {
			err := NewInvalidStateError("episode already complete")

			Expect(err.Type).To(Equal(ErrorTypeInvalidState))
			Expect(err.Message).To(Equal("episode already complete"))
		})

		It("should create invalid input error", func() {
			err := NewInvalidInputError("invalid regular expression")

			Expect(err.Type).To(Equal(ErrorTypeInvalidInput))
		})

		It("should create storage error", func() {
			originalErr := errors.New("connection lost")
			err := NewStorageError("insert episode", originalErr)

			Expect(err.Type).To(Equal(ErrorTypeStorage))
			Expect(err.Message).To(ContainSubstring("storage operation failed: insert episode"))
			Expect(err.Cause).To(Equal(originalErr))
		})

		It("should create serialization error", func() {
			err := NewSerializationError("invalid embedding payload")

			Expect(err.Type).To(Equal(ErrorTypeSerialization))
		})

		It("should create circuit breaker open error", func() {
			err := NewCircuitBreakerOpenError(5 * time.Second)

			Expect(err.Type).To(Equal(ErrorTypeCircuitBreakerOpen))
			Expect(err.Details).To(ContainSubstring("5s"))
		})

		It("should create conflict error", func() {
			err := NewConflictError("concurrent write detected")

			Expect(err.Type).To(Equal(ErrorTypeConflict))
		})
	})

	Describe("Error Type Checking", func() {
		It("should correctly identify error types", func() {
			notFoundErr := NewNotFoundError("pattern")
			conflictErr := NewConflictError("test")

			Expect(IsType(notFoundErr, ErrorTypeNotFound)).To(BeTrue())
			Expect(IsType(notFoundErr, ErrorTypeConflict)).To(BeFalse())
			Expect(IsType(conflictErr, ErrorTypeConflict)).To(BeTrue())
		})

		It("should handle non-AppError types", func() {
			regularErr := errors.New("regular error")

			Expect(IsType(regularErr, ErrorTypeNotFound)).To(BeFalse())
			Expect(GetType(regularErr)).To(Equal(ErrorTypeStorage))
		})

		It("should get correct status codes", func() {
			notFoundErr := NewNotFoundError("episode")
			regularErr := errors.New("regular error")

			Expect(GetStatusCode(notFoundErr)).To(Equal(http.StatusNotFound))
			Expect(GetStatusCode(regularErr)).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Safe Error Messages", func() {
		It("should return safe messages for different error types", func() {
			testCases := []struct {
				errorType    ErrorType
				expectedSafe string
			}{
				{ErrorTypeNotFound, ErrorMessages.ResourceNotFound},
				{ErrorTypeCircuitBreakerOpen, ErrorMessages.ServiceUnavailable},
				{ErrorTypeConflict, ErrorMessages.ConcurrentModification},
				{ErrorTypeSerialization, ErrorMessages.SerializationFailure},
				{ErrorTypeStorage, ErrorMessages.StorageFailure},
			}

			for _, tc := range testCases {
				err := New(tc.errorType, "internal details")
				Expect(SafeErrorMessage(err)).To(Equal(tc.expectedSafe))
			}

			inputErr := NewInvalidInputError("specific validation message")
			Expect(SafeErrorMessage(inputErr)).To(Equal("specific validation message"))
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
			appErr := Wrapf(originalErr, ErrorTypeStorage, "query failed").
				WithDetails("table: episodes")

			fields := LogFields(appErr)

			Expect(fields).To(HaveKey("error"))
			Expect(fields).To(HaveKey("error_type"))
			Expect(fields).To(HaveKey("status_code"))
			Expect(fields).To(HaveKey("error_details"))
			Expect(fields).To(HaveKey("underlying_error"))

			Expect(fields["error_type"]).To(Equal("storage"))
			Expect(fields["status_code"]).To(Equal(http.StatusInternalServerError))
			Expect(fields["error_details"]).To(Equal("table: episodes"))
			Expect(fields["underlying_error"]).To(Equal("connection failed"))
		})

		It("should handle simple AppError without details", func() {
			err := NewNotFoundError("episode")
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
				ErrorTypeNotFound,
				ErrorTypeInvalidState,
				ErrorTypeInvalidInput,
				ErrorTypeStorage,
				ErrorTypeSerialization,
				ErrorTypeCircuitBreakerOpen,
				ErrorTypeConflict,
			}

			for _, errorType := range expectedTypes {
				Expect(string(errorType)).NotTo(BeEmpty())
			}
		})
	})
})
